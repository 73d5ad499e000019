package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

const dialTimeout = 30 * time.Second

// FingerprintTransport sends https requests with a Chrome client hello.
// HTTP/2 is attempted first, HTTP/1.1 is used when the server refuses it.
// Plain http requests use the regular transport.
type FingerprintTransport struct {
	h2    *http2.Transport
	h1    *http.Transport
	plain http.RoundTripper
}

// NewFingerprintTransport returns a transport that mimics Chrome 120 on the TLS layer.
func NewFingerprintTransport() *FingerprintTransport {
	h1 := newTransport()
	h1.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialTLS(ctx, network, addr, []string{"http/1.1"})
	}

	return &FingerprintTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialTLS(ctx, network, addr, nil)
			},
		},
		h1:    h1,
		plain: newTransport(),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *FingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.plain.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	retry := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, err
		}
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, bodyErr
		}
		retry.Body = body
	}

	return t.h1.RoundTrip(retry)
}

// dialTLS opens a uTLS connection with the Chrome 120 hello.
// A nil protos keeps the hello's own ALPN list (h2 and http/1.1).
func dialTLS(ctx context.Context, network, addr string, protos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		NextProtos: protos,
	}, utls.HelloChrome_120)

	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
