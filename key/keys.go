// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// DefinedFieldsCount represents the total cardinality of the application configuration schema.
const DefinedFieldsCount = 29

// Episode Source Scripts - these keys manage the selection of Lua episode source scripts.
const (
	SourcesDefault = "sources.default"
)

// Proxy Service - these keys locate the CORS/header proxy and configure the bundled proxy server.
const (
	ProxyBaseURL        = "proxy.base_url"
	ProxyListen         = "proxy.listen"
	ProxyRateLimit      = "proxy.rate_limit"
	ProxyAllowedOrigins = "proxy.allowed_origins"
	ProxyRequireKey     = "proxy.require_key"
)

// Media Playback - these keys configure the media element and the skip controller.
const (
	Player                = "player.default"
	PlayerAutoplay        = "player.autoplay"
	PlayerAutoSkipIntro   = "player.auto_skip_intro"
	PlayerAutoSkipOutro   = "player.auto_skip_outro"
	PlayerMaxHeight       = "player.max_height"
	PlayerSubtitleLang    = "player.subtitle_language"
	PlayerVolume          = "player.volume"
	Aniskip               = "player.aniskip"
	PlayerControlsTimeout = "player.controls_timeout_ms"
)

// Adaptive Streaming - these keys tune the HLS session, its retry policy and the stall governor.
const (
	PlaybackStallThreshold = "playback.stall_threshold_ms"
	PlaybackStallPoll      = "playback.stall_poll_ms"
	PlaybackMaxAttempts    = "playback.max_attempts"
	PlaybackRetryDelay     = "playback.retry_delay_ms"
	PlaybackMaxRecoveries  = "playback.max_recoveries"
	PlaybackMaxBuffer      = "playback.max_buffer_seconds"
)

// Network - these keys tune the shared HTTP transport.
const (
	NetworkTLSFingerprint = "network.tls_fingerprint"
)

// History Tracking - these keys configure the persistence of resume positions.
const (
	HistorySave = "history.save"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
