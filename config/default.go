package config

import (
	"fmt"

	"github.com/anisan-cli/anistream/key"
)

// Default is the registry of every setting, keyed by its dotted name.
var Default = make(map[string]Field)

// EnvExposed lists the keys bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.SourcesDefault, "", "Default episode source script to use.\nWill prompt if not set.\nType \"anistream sources list\" to show available scripts")
	register(key.ProxyBaseURL, "", "Base URL of the CORS/header proxy.\nHLS manifests are routed through {base}/m3u8-proxy when set.\nLeave empty to fetch upstream directly")
	register(key.ProxyListen, ":8787", "Address the bundled proxy server listens on")
	register(key.ProxyRateLimit, 50, "Requests per second allowed by the bundled proxy server.\n0 disables rate limiting")
	register(key.ProxyAllowedOrigins, []string{"*"}, "Origins allowed to call the bundled proxy server")
	register(key.ProxyRequireKey, false, "Require the API key stored by \"anistream proxy login\" on proxy requests")
	register(key.Player, "mpv", "Media element to use.\nAvailable options are: mpv, headless")
	register(key.PlayerAutoplay, true, "Start playback as soon as the stream is ready")
	register(key.PlayerAutoSkipIntro, false, "Seek past the intro automatically instead of showing a skip button")
	register(key.PlayerAutoSkipOutro, false, "Seek past the outro automatically instead of showing a skip button")
	register(key.PlayerMaxHeight, 0, "Highest quality (in pixels) the initial level may have.\n0 means no cap")
	register(key.PlayerSubtitleLang, "English", "Preferred subtitle language. Matching tracks are activated first")
	register(key.PlayerVolume, 100, "Initial volume (0-100)")
	register(key.PlayerControlsTimeout, 3000, "Milliseconds of inactivity before the controls hint is hidden")
	register(key.Aniskip, true, "Look up intro/outro markers on AniSkip when the episode has none")
	register(key.PlaybackStallThreshold, 5000, "Milliseconds of continuous buffering before the quality is lowered")
	register(key.PlaybackStallPoll, 1000, "Milliseconds between two stall checks")
	register(key.PlaybackMaxAttempts, 5, "Attempts per manifest, key or fragment request")
	register(key.PlaybackRetryDelay, 1000, "Milliseconds to wait between two request attempts")
	register(key.PlaybackMaxRecoveries, 5, "Automatic recoveries from fatal network or media errors before giving up")
	register(key.PlaybackMaxBuffer, 30, "Seconds of media to buffer ahead of the playback position")
	register(key.NetworkTLSFingerprint, false, "Use a browser TLS fingerprint for upstream requests")
	register(key.HistorySave, true, "Save the playback position of watched episodes")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")

	if len(Default) != key.DefinedFieldsCount {
		panic(fmt.Sprintf("config: %d fields registered, %d defined", len(Default), key.DefinedFieldsCount))
	}
}
