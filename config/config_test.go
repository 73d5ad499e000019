package config

import (
	"errors"
	"testing"
	"time"

	"github.com/anisan-cli/anistream/auth"
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			err := Setup()
			So(err, ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			result := EnvKeyReplacer.Replace("playback.stall_threshold_ms")
			So(result, ShouldEqual, "playback_stall_threshold_ms")
		})

		Convey("Fields should expose prefixed environment names", func() {
			field := Default[key.ProxyBaseURL]
			So(field.Env(), ShouldEqual, "ANISTREAM_PROXY_BASE_URL")
		})
	})
}

func TestPlaybackConfig(t *testing.T) {
	Convey("Given the default settings", t, func() {
		So(Setup(), ShouldBeNil)

		Convey("The session configuration should match the stock one", func() {
			cfg := PlaybackConfig()
			So(cfg.StallThreshold, ShouldEqual, 5*time.Second)
			So(cfg.StallPollInterval, ShouldEqual, time.Second)
			So(cfg.MaxAttempts, ShouldEqual, 5)
			So(cfg.RetryDelay, ShouldEqual, time.Second)
			So(cfg.MaxBufferLength, ShouldEqual, 30*time.Second)
			So(cfg.Volume, ShouldEqual, 1)
			So(cfg.Autoplay, ShouldBeTrue)
		})

		Convey("Overrides should be applied", func() {
			viper.Set(key.PlaybackStallThreshold, 2500)
			viper.Set(key.PlayerVolume, 150)
			viper.Set(key.PlayerMaxHeight, 720)
			defer func() {
				viper.Set(key.PlaybackStallThreshold, 5000)
				viper.Set(key.PlayerVolume, 100)
				viper.Set(key.PlayerMaxHeight, 0)
			}()

			cfg := PlaybackConfig()
			So(cfg.StallThreshold, ShouldEqual, 2500*time.Millisecond)
			So(cfg.Volume, ShouldEqual, 1)
			So(cfg.MaxHeight, ShouldEqual, 720)
		})
	})
}

func TestResolver(t *testing.T) {
	Convey("Given a configured proxy and a saved API key", t, func() {
		keyring.MockInit()
		So(Setup(), ShouldBeNil)
		So(auth.SetAPIKey("s3cret"), ShouldBeNil)

		viper.Set(key.ProxyBaseURL, "https://proxy.example/")
		defer viper.Set(key.ProxyBaseURL, "")

		Convey("The resolver should carry both", func() {
			resolver := Resolver()
			So(resolver.ProxyBase, ShouldEqual, "https://proxy.example")
			So(resolver.APIKey, ShouldEqual, "s3cret")
		})

		Convey("Without a proxy no key should be attached", func() {
			viper.Set(key.ProxyBaseURL, "")
			So(Resolver().APIKey, ShouldBeEmpty)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given the registered constraints", t, func() {
		Convey("Enumerated keys should only accept their options", func() {
			So(Validate(key.Player, "mpv"), ShouldBeNil)
			So(Validate(key.Player, "vlc"), ShouldNotBeNil)
			So(Validate(key.IconsVariant, "nerd"), ShouldBeNil)
			So(Validate(key.IconsVariant, ""), ShouldBeNil)
			So(Validate(key.LogsLevel, "debug"), ShouldBeNil)
			So(Validate(key.LogsLevel, "loud"), ShouldNotBeNil)
		})

		Convey("The proxy base should be an http URL or empty", func() {
			So(Validate(key.ProxyBaseURL, ""), ShouldBeNil)
			So(Validate(key.ProxyBaseURL, "https://proxy.example"), ShouldBeNil)
			So(Validate(key.ProxyBaseURL, "proxy.example"), ShouldNotBeNil)
			So(Validate(key.ProxyBaseURL, "ftp://proxy.example"), ShouldNotBeNil)
		})

		Convey("Numeric keys should be range checked", func() {
			So(Validate(key.PlayerVolume, 100), ShouldBeNil)
			So(Validate(key.PlayerVolume, 101), ShouldNotBeNil)
			So(Validate(key.PlaybackMaxAttempts, 0), ShouldNotBeNil)
		})

		Convey("Unconstrained keys should accept anything", func() {
			So(Validate(key.PlayerSubtitleLang, "日本語"), ShouldBeNil)
		})

		Convey("Setup should reject an invalid loaded value", func() {
			viper.Set(key.Player, "vlc")
			defer viper.Set(key.Player, "mpv")

			var invalid *InvalidValueError
			So(errors.As(Setup(), &invalid), ShouldBeTrue)
			So(invalid.Key, ShouldEqual, key.Player)
		})
	})
}
