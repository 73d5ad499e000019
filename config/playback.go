package config

import (
	"time"

	"github.com/anisan-cli/anistream/auth"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/playback"
	"github.com/anisan-cli/anistream/resolve"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

func millis(k string) time.Duration {
	return time.Duration(viper.GetInt(k)) * time.Millisecond
}

// PlaybackConfig builds the session configuration from the current settings.
func PlaybackConfig() playback.Config {
	cfg := playback.DefaultConfig()

	cfg.StallThreshold = millis(key.PlaybackStallThreshold)
	cfg.StallPollInterval = millis(key.PlaybackStallPoll)
	cfg.MaxAttempts = viper.GetInt(key.PlaybackMaxAttempts)
	cfg.RetryDelay = millis(key.PlaybackRetryDelay)
	cfg.MaxRecoveries = viper.GetInt(key.PlaybackMaxRecoveries)
	cfg.MaxBufferLength = time.Duration(viper.GetInt(key.PlaybackMaxBuffer)) * time.Second

	cfg.MaxHeight = viper.GetInt(key.PlayerMaxHeight)
	cfg.Autoplay = viper.GetBool(key.PlayerAutoplay)
	cfg.AutoSkipIntro = viper.GetBool(key.PlayerAutoSkipIntro)
	cfg.AutoSkipOutro = viper.GetBool(key.PlayerAutoSkipOutro)
	cfg.Volume = float64(lo.Clamp(viper.GetInt(key.PlayerVolume), 0, 100)) / 100

	return cfg
}

// Resolver builds the stream resolver for the configured proxy.
// The API key saved by "proxy login" is attached when present.
func Resolver() *resolve.Resolver {
	resolver := resolve.New(viper.GetString(key.ProxyBaseURL))
	if !resolver.Enabled() {
		return resolver
	}

	apiKey, err := auth.LookupAPIKey()
	if err != nil {
		log.Warnf("read proxy API key: %v", err)
	}
	resolver.APIKey = apiKey

	return resolver
}
