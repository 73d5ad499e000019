// Package proxy implements the CORS proxy that re-issues manifest, segment and subtitle
// requests with the upstream headers embedded in the proxied URL.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/metrics"
	"github.com/anisan-cli/anistream/network"
	"github.com/anisan-cli/anistream/resolve"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Options configures a proxy server.
type Options struct {
	// Listen is the address to bind, e.g. ":8787".
	Listen string
	// BaseURL is the public URL of the proxy used in rewritten playlists.
	// Defaults to http://localhost plus the listen port.
	BaseURL string
	// RateLimit is the allowed requests per second. Zero disables limiting.
	RateLimit float64
	// AllowedOrigins for CORS. Empty allows every origin.
	AllowedOrigins []string
	// APIKey, when set, is required as a bearer token on every proxy route.
	APIKey string
	Client *http.Client
}

// Server is the proxy HTTP service.
type Server struct {
	opts     Options
	resolver *resolve.Resolver
	handler  http.Handler
}

// New builds a server and its routes.
func New(opts Options) *Server {
	if opts.Client == nil {
		opts.Client = network.Client
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL(opts.Listen)
	}

	s := &Server{
		opts:     opts,
		resolver: resolve.New(opts.BaseURL),
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	router := mux.NewRouter()
	router.Use(recoveryMiddleware, loggingMiddleware, metricsMiddleware)

	router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	routes := router.NewRoute().Subrouter()
	routes.Use(apiKeyMiddleware(opts.APIKey), rateLimitMiddleware(opts.RateLimit, max(int(opts.RateLimit), 1)))
	routes.HandleFunc(constant.RouteManifestProxy, s.manifest).Methods(http.MethodGet)
	routes.HandleFunc(constant.RouteSegmentProxy, s.segment).Methods(http.MethodGet)
	routes.HandleFunc(constant.RouteSubtitleProxy, s.subtitle).Methods(http.MethodGet)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Range"},
		ExposedHeaders: []string{"Content-Length", "Content-Range", "Accept-Ranges", constant.HeaderUpstreamStatus},
	}).Handler(router)

	return s
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// BaseURL returns the public URL rewritten playlists point at.
func (s *Server) BaseURL() string {
	return s.resolver.ProxyBase
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"listen": s.opts.Listen, "base": s.opts.BaseURL}).Info("proxy listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "version": constant.Version})
}

func (s *Server) manifest(w http.ResponseWriter, r *http.Request) {
	target, headers, resp, ok := s.fetch(w, r, constant.RouteManifestProxy)
	if !ok {
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeUpstreamError(w, http.StatusBadGateway, upstreamUnreachable, "read upstream: "+err.Error())
		return
	}
	metrics.ProxyUpstreamBytes.WithLabelValues(constant.RouteManifestProxy).Add(float64(len(body)))

	base := target
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}

	w.Header().Set("Content-Type", constant.MimeHLS)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(Rewrite(body, base, headers, s.resolver))
}

func (s *Server) segment(w http.ResponseWriter, r *http.Request) {
	_, _, resp, ok := s.fetch(w, r, constant.RouteSegmentProxy)
	if !ok {
		return
	}
	defer resp.Body.Close()

	for _, h := range []string{"Content-Type", "Content-Length", "Content-Range", "Accept-Ranges"} {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", constant.MimeMPEGTS)
	}

	w.WriteHeader(resp.StatusCode)
	n, _ := io.Copy(w, resp.Body)
	metrics.ProxyUpstreamBytes.WithLabelValues(constant.RouteSegmentProxy).Add(float64(n))
}

func (s *Server) subtitle(w http.ResponseWriter, r *http.Request) {
	_, _, resp, ok := s.fetch(w, r, constant.RouteSubtitleProxy)
	if !ok {
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "text/plain") {
		contentType = constant.MimeWebVTT
	}
	w.Header().Set("Content-Type", contentType)
	for _, h := range []string{"Content-Length", "Content-Range", "Accept-Ranges"} {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	n, _ := io.Copy(w, resp.Body)
	metrics.ProxyUpstreamBytes.WithLabelValues(constant.RouteSubtitleProxy).Add(float64(n))
}

// fetch decodes the proxied request and issues it upstream.
// On failure the response has already been written.
func (s *Server) fetch(w http.ResponseWriter, r *http.Request, route string) (string, map[string]string, *http.Response, bool) {
	target, headers, err := resolve.DecodeRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", nil, nil, false
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", nil, nil, false
	}
	req.Header.Set("User-Agent", constant.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if rng := r.Header.Get("Range"); rng != "" && route != constant.RouteManifestProxy {
		req.Header.Set("Range", rng)
	}

	resp, err := s.opts.Client.Do(req)
	if err != nil {
		status := http.StatusBadGateway
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			status = http.StatusGatewayTimeout
		}
		writeUpstreamError(w, status, upstreamUnreachable, fmt.Sprintf("upstream: %v", err))
		return "", nil, nil, false
	}

	upstream := strconv.Itoa(resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		writeUpstreamError(w, http.StatusForbidden, upstream, "upstream refused access")
		return "", nil, nil, false
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		writeUpstreamError(w, http.StatusNotFound, upstream, "upstream not found")
		return "", nil, nil, false
	case resp.StatusCode >= 400:
		resp.Body.Close()
		writeUpstreamError(w, http.StatusBadGateway, upstream, "upstream status "+upstream)
		return "", nil, nil, false
	}

	return target, headers, resp, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]any{"ok": false, "reason": reason})
}

const upstreamUnreachable = "unreachable"

// writeUpstreamError marks the error as the upstream's so clients can tell it from a proxy fault.
func writeUpstreamError(w http.ResponseWriter, status int, upstream, reason string) {
	w.Header().Set(constant.HeaderUpstreamStatus, upstream)
	writeError(w, status, reason)
}

func defaultBaseURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://localhost"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
