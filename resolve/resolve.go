// Package resolve classifies stream sources and routes them through the CORS/header proxy.
package resolve

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/log"
)

// InvalidSourceError is returned when a source URL is missing or carries an upstream placeholder.
type InvalidSourceError struct {
	URL string
}

func (e *InvalidSourceError) Error() string {
	if strings.TrimSpace(e.URL) == "" {
		return "invalid source: empty url"
	}
	return fmt.Sprintf("invalid source: %q", e.URL)
}

// Resolution is the outcome of resolving one source URL.
type Resolution struct {
	// PlaybackURL is the URL the media element or the adaptive client should load.
	PlaybackURL string
	// IsHLS reports whether the source is an HLS manifest.
	IsHLS bool
	// Proxied reports whether PlaybackURL points at the proxy service.
	Proxied bool
	// Warning is set when the source should have been proxied but no proxy is configured.
	Warning string
}

// Resolver turns episode source URLs into playback URLs.
// The zero value resolves without a proxy.
type Resolver struct {
	// ProxyBase is the base URL of the proxy service, e.g. https://p.example.
	ProxyBase string
	// APIKey is sent as a bearer token on requests addressed to the proxy.
	APIKey string
}

// New returns a resolver for the given proxy base URL. An empty base disables proxying.
func New(proxyBase string) *Resolver {
	return &Resolver{ProxyBase: strings.TrimRight(strings.TrimSpace(proxyBase), "/")}
}

// Validate reports an *InvalidSourceError for empty or placeholder URLs.
func Validate(sourceURL string) error {
	if strings.TrimSpace(sourceURL) == "" || strings.Contains(sourceURL, constant.UndefinedMarker) {
		return &InvalidSourceError{URL: sourceURL}
	}
	return nil
}

// IsHLS reports whether the URL designates an HLS manifest.
func IsHLS(sourceURL string) bool {
	lower := strings.ToLower(sourceURL)
	return strings.Contains(lower, constant.ExtensionHLS) || strings.Contains(lower, constant.MimeHLS)
}

// Resolve validates and classifies sourceURL.
// HLS manifests are routed through {proxy}/m3u8-proxy when a proxy is configured.
// Non-empty headers are embedded in the proxied URL so the proxy can re-issue the request with them.
func (r *Resolver) Resolve(sourceURL string, headers map[string]string) (Resolution, error) {
	if err := Validate(sourceURL); err != nil {
		return Resolution{}, err
	}

	res := Resolution{PlaybackURL: sourceURL, IsHLS: IsHLS(sourceURL)}
	if !res.IsHLS {
		return res, nil
	}

	if !r.Enabled() {
		res.Warning = "no proxy configured, fetching the manifest directly"
		log.WithField("url", sourceURL).Warn(res.Warning)
		return res, nil
	}

	res.PlaybackURL = r.build(constant.RouteManifestProxy, sourceURL, headers, false)
	res.Proxied = true
	return res, nil
}

// Enabled reports whether a proxy base URL is configured.
func (r *Resolver) Enabled() bool {
	return r != nil && r.ProxyBase != ""
}

// SegmentURL routes a media segment through {proxy}/ts-proxy.
// The headers parameter is always present on segment requests.
func (r *Resolver) SegmentURL(segmentURL string, headers map[string]string) string {
	if !r.Enabled() || r.IsProxyURL(segmentURL) {
		return segmentURL
	}
	return r.build(constant.RouteSegmentProxy, segmentURL, headers, true)
}

// SubtitleURL routes a cross-origin subtitle file through {proxy}/subtitle-proxy.
// Relative URLs, URLs already on the proxy host and all URLs when no proxy is set are returned unchanged.
func (r *Resolver) SubtitleURL(subtitleURL string, headers map[string]string) string {
	if !r.Enabled() || !r.crossOrigin(subtitleURL) {
		return subtitleURL
	}
	return r.build(constant.RouteSubtitleProxy, subtitleURL, headers, false)
}

// Route returns the URL to fetch for target and the headers to attach to that request directly.
// Requests to the proxy carry only the proxy credentials since the upstream headers are embedded in the URL.
// Any other request carries the upstream headers itself.
func (r *Resolver) Route(target string, headers map[string]string) (string, map[string]string) {
	if r.IsProxyURL(target) {
		direct := make(map[string]string, 1)
		if r.APIKey != "" {
			direct["Authorization"] = "Bearer " + r.APIKey
		}
		return target, direct
	}

	direct := make(map[string]string, len(headers))
	for k, v := range headers {
		direct[k] = v
	}
	return target, direct
}

// IsProxyURL reports whether u is addressed to the configured proxy.
func (r *Resolver) IsProxyURL(u string) bool {
	return r.Enabled() && strings.HasPrefix(u, r.ProxyBase+"/")
}

// ProxyHost returns the host of the proxy base URL, or "" when none is configured.
func (r *Resolver) ProxyHost() string {
	if !r.Enabled() {
		return ""
	}
	parsed, err := url.Parse(r.ProxyBase)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func (r *Resolver) crossOrigin(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || !parsed.IsAbs() {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != r.ProxyHost()
}

func (r *Resolver) build(route, target string, headers map[string]string, alwaysHeaders bool) string {
	var b strings.Builder
	b.WriteString(r.ProxyBase)
	b.WriteString(route)
	b.WriteString("?url=")
	b.WriteString(url.QueryEscape(target))

	if len(headers) > 0 || alwaysHeaders {
		b.WriteString("&headers=")
		b.WriteString(url.QueryEscape(EncodeHeaders(headers)))
	}

	return b.String()
}

// EncodeHeaders serializes headers for embedding in a proxy URL.
func EncodeHeaders(headers map[string]string) string {
	if headers == nil {
		headers = map[string]string{}
	}
	// a map of strings always marshals
	data, _ := json.Marshal(headers)
	return string(data)
}

// DecodeRequest extracts the upstream target and headers from proxy query parameters.
func DecodeRequest(values url.Values) (target string, headers map[string]string, err error) {
	target = values.Get("url")
	if err = Validate(target); err != nil {
		return "", nil, err
	}

	parsed, err := url.Parse(target)
	if err != nil || !parsed.IsAbs() {
		return "", nil, &InvalidSourceError{URL: target}
	}

	headers = make(map[string]string)
	if raw := values.Get("headers"); raw != "" {
		if err = json.Unmarshal([]byte(raw), &headers); err != nil {
			return "", nil, fmt.Errorf("decode headers: %w", err)
		}
	}

	return target, headers, nil
}
