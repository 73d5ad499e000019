// Package network provides the shared HTTP client for upstream manifest, segment and API requests.
package network

import (
	"net/http"
	"sync"
	"time"
)

// Client is the HTTP client shared across the application.
// It is configured with increased concurrency limits and reasonable timeouts for segment fetching.
var Client = &http.Client{
	Timeout:   time.Minute,
	Transport: newTransport(),
}

var transportMu sync.Mutex

// UseFingerprint switches Client between the regular transport and the Chrome TLS fingerprint.
func UseFingerprint(enabled bool) {
	transportMu.Lock()
	defer transportMu.Unlock()

	if enabled {
		Client.Transport = NewFingerprintTransport()
	} else {
		Client.Transport = newTransport()
	}
}

// newTransport initializes a tuned http.Transport with optimized pool and timeout parameters.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 100
	t.MaxConnsPerHost = 200
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	t.ExpectContinueTimeout = 30 * time.Second
	return t
}
