// Package player provides the media elements sessions can drive.
// The primary backend is mpv, controlled through its JSON-IPC interface.
package player

import (
	"fmt"
	"strings"

	"github.com/anisan-cli/anistream/media"
	"github.com/anisan-cli/anistream/playback"
)

const (
	MPVName      = "mpv"
	HeadlessName = "headless"
)

// Available lists the backend names accepted by New.
var Available = []string{MPVName, HeadlessName}

// Backend is a media element owning external resources.
type Backend interface {
	playback.Media

	// Close terminates the backend and releases its resources.
	Close() error
}

// New returns the backend registered under name.
func New(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MPVName:
		return NewMPV(), nil
	case HeadlessName:
		return media.New(), nil
	default:
		return nil, fmt.Errorf("unknown player %q, available: %s", name, strings.Join(Available, ", "))
	}
}
