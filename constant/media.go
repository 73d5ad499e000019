package constant

// MIME markers used to classify stream sources.
const (
	MimeHLS      = "application/vnd.apple.mpegurl"
	MimeHLSAlt   = "application/x-mpegurl"
	MimeMP4      = "video/mp4"
	MimeMPEGTS   = "video/mp2t"
	MimeWebVTT   = "text/vtt"
	ExtensionHLS = ".m3u8"
)

// Proxy service routes.
const (
	RouteManifestProxy = "/m3u8-proxy"
	RouteSegmentProxy  = "/ts-proxy"
	RouteSubtitleProxy = "/subtitle-proxy"
)

// HeaderUpstreamStatus is set by the proxy on errors caused by the upstream
// rather than the proxy itself. Its value is the upstream status code, or
// "unreachable" when the upstream could not be reached.
const HeaderUpstreamStatus = "X-Proxy-Upstream-Status"

// Placeholder emitted by upstream APIs when an identifier is missing.
const UndefinedMarker = "undefined"
