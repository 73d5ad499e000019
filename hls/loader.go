// Package hls implements the adaptive HLS client used when the media element has no native HLS support.
package hls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/metrics"
	"github.com/anisan-cli/anistream/network"
	"github.com/anisan-cli/anistream/playback"
	"github.com/anisan-cli/anistream/resolve"
)

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	URL      string
	Code     int
	// Upstream is set when the proxy attributed the failure to the upstream.
	Upstream string
}

func (e *StatusError) Error() string {
	if e.Upstream != "" {
		return fmt.Sprintf("%s: unexpected status %d (upstream %s)", e.URL, e.Code, e.Upstream)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.Code)
}

// Response is a fetched manifest, key or fragment.
type Response struct {
	Body []byte
	// URL is the final URL after redirects, used to resolve relative references.
	URL  string
	Took time.Duration
}

// Loader fetches resources with the session headers and a fixed retry policy.
type Loader struct {
	Client   *http.Client
	Resolver *resolve.Resolver
	Headers  map[string]string
	Attempts int
	Delay    time.Duration
	// OnRetry is called for every failed attempt that will be retried.
	OnRetry func(target string, attempt int, err error)
}

// NewLoader returns a loader using the shared network client.
func NewLoader(resolver *resolve.Resolver, headers map[string]string, cfg playback.Config) *Loader {
	if resolver == nil {
		resolver = resolve.New("")
	}
	return &Loader{
		Client:   network.Client,
		Resolver: resolver,
		Headers:  headers,
		Attempts: cfg.MaxAttempts,
		Delay:    cfg.RetryDelay,
	}
}

// Fetch GETs target, retrying up to Attempts times with Delay between attempts.
// A 403 is returned at once as *playback.AccessDeniedError.
// Exhausted attempts against the proxy yield *playback.ProxyUnavailableError when the proxy itself failed,
// that is the dial failed or it answered a gateway status without marking the upstream as the cause.
func (l *Loader) Fetch(ctx context.Context, target string) (*Response, error) {
	fetchURL, headers := l.Resolver.Route(target, l.Headers)
	attempts := max(l.Attempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := l.fetchOnce(ctx, fetchURL, headers)
		if err == nil {
			metrics.RequestAttempts.WithLabelValues("ok").Inc()
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var denied *playback.AccessDeniedError
		if errors.As(err, &denied) {
			metrics.RequestAttempts.WithLabelValues("denied").Inc()
			return nil, err
		}

		metrics.RequestAttempts.WithLabelValues("failed").Inc()
		lastErr = err
		if attempt == attempts {
			break
		}
		if l.OnRetry != nil {
			l.OnRetry(target, attempt, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.Delay):
		}
	}

	return nil, l.exhausted(fetchURL, attempts, lastErr)
}

func (l *Loader) fetchOnce(ctx context.Context, fetchURL string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", constant.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, &playback.AccessDeniedError{URL: fetchURL, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{
			URL:      fetchURL,
			Code:     resp.StatusCode,
			Upstream: resp.Header.Get(constant.HeaderUpstreamStatus),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		Body: body,
		URL:  resp.Request.URL.String(),
		Took: time.Since(started),
	}, nil
}

func (l *Loader) exhausted(fetchURL string, attempts int, err error) error {
	if l.Resolver.IsProxyURL(fetchURL) {
		var status *StatusError
		switch {
		case errors.As(err, &status) && isGatewayStatus(status.Code) && status.Upstream == "":
			return &playback.ProxyUnavailableError{Proxy: l.Resolver.ProxyBase, Status: status.Code, Err: err}
		case isDialError(err):
			return &playback.ProxyUnavailableError{Proxy: l.Resolver.ProxyBase, Err: err}
		}
	}
	return fmt.Errorf("%d attempts failed: %w", attempts, err)
}

func isGatewayStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// resolveReference resolves ref against the URL of the document that contained it.
func resolveReference(base, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil || parsed.IsAbs() {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(parsed).String()
}
