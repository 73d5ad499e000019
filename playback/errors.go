package playback

import (
	"errors"
	"fmt"

	"github.com/anisan-cli/anistream/resolve"
)

var (
	// ErrSessionClosed is returned by operations on a session that was torn down.
	ErrSessionClosed = errors.New("playback session closed")
	// ErrUnsupported is returned for controls the media element cannot provide.
	ErrUnsupported = errors.New("not supported by this player")
	// ErrNoSession is returned by controller operations when nothing is loaded.
	ErrNoSession = errors.New("no active playback session")
)

// Cause classifies a PlaybackFatalError.
type Cause string

const (
	CauseNetwork Cause = "network"
	CauseMedia   Cause = "media"
	CauseOther   Cause = "other"
)

// PlaybackFatalError is raised after retry exhaustion or an unrecoverable fault.
type PlaybackFatalError struct {
	Cause Cause
	Err   error
}

func (e *PlaybackFatalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fatal %s error", e.Cause)
	}
	return fmt.Sprintf("fatal %s error: %v", e.Cause, e.Err)
}

func (e *PlaybackFatalError) Unwrap() error { return e.Err }

// UnsupportedFormatError is returned when neither the adaptive client nor the media element can play a source.
type UnsupportedFormatError struct {
	MIME string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %s", e.MIME)
}

// ProxyUnavailableError is returned when the proxy service cannot be reached or is misconfigured.
type ProxyUnavailableError struct {
	Proxy string
	// Status is the HTTP status the proxy answered with, zero when it could not be reached.
	Status int
	Err    error
}

func (e *ProxyUnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("proxy %s unavailable: status %d", e.Proxy, e.Status)
	}
	return fmt.Sprintf("proxy %s unavailable: %v", e.Proxy, e.Err)
}

func (e *ProxyUnavailableError) Unwrap() error { return e.Err }

// AccessDeniedError is returned when an upstream host answers 403.
type AccessDeniedError struct {
	URL    string
	Status int
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied (%d) for %s", e.Status, e.URL)
}

// Message returns the user-visible text for err.
func Message(err error) string {
	var (
		invalid     *resolve.InvalidSourceError
		fatal       *PlaybackFatalError
		unsupported *UnsupportedFormatError
		proxy       *ProxyUnavailableError
		denied      *AccessDeniedError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		return "No valid video source provided"
	case errors.As(err, &proxy):
		return "Could not connect to proxy server — check proxy configuration"
	case errors.As(err, &denied):
		return "Access denied — check headers"
	case errors.As(err, &unsupported):
		return "This player cannot play this video format"
	case errors.As(err, &fatal) && fatal.Cause == CauseMedia:
		return "Video could not be decoded — please try another server"
	case errors.As(err, &fatal):
		return "Failed to load video — please try another server"
	default:
		return err.Error()
	}
}

// Retryable reports whether trying another server could help.
func Retryable(err error) bool {
	var invalid *resolve.InvalidSourceError
	return err != nil && !errors.As(err, &invalid)
}
