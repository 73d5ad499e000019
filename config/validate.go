package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/player"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Validator reports why a value is not acceptable for its key.
type Validator func(value any) error

var validators = map[string]Validator{
	key.Player:       oneOf(player.Available),
	key.IconsVariant: oneOf(append([]string{""}, icon.AvailableVariants()...)),
	key.LogsLevel: func(v any) error {
		_, err := logrus.ParseLevel(fmt.Sprint(v))
		return err
	},
	key.ProxyBaseURL: func(v any) error {
		raw := fmt.Sprint(v)
		if raw == "" {
			return nil
		}
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}
		if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("%q is not an http(s) URL", raw)
		}
		return nil
	},
	key.PlayerVolume:           between(0, 100),
	key.PlayerMaxHeight:        between(0, 4320),
	key.PlayerControlsTimeout:  between(0, 60_000),
	key.PlaybackStallThreshold: between(100, 600_000),
	key.PlaybackStallPoll:      between(50, 60_000),
	key.PlaybackMaxAttempts:    between(1, 100),
	key.PlaybackRetryDelay:     between(0, 60_000),
	key.PlaybackMaxRecoveries:  between(0, 100),
	key.PlaybackMaxBuffer:      between(1, 3600),
	key.ProxyRateLimit:         between(0, 100_000),
}

// InvalidValueError is returned for a value rejected by the constraints of its key.
type InvalidValueError struct {
	Key string
	Err error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %s: %v", e.Key, e.Err)
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}

// Validate checks value against the constraints of k. Keys without constraints accept anything.
func Validate(k string, value any) error {
	validate, ok := validators[k]
	if !ok {
		return nil
	}
	if err := validate(value); err != nil {
		return &InvalidValueError{Key: k, Err: err}
	}
	return nil
}

// validateLoaded checks every constrained key of the loaded configuration.
func validateLoaded() error {
	for _, k := range lo.Keys(validators) {
		if err := Validate(k, viper.Get(k)); err != nil {
			return err
		}
	}
	return nil
}

func oneOf(options []string) Validator {
	return func(v any) error {
		s := fmt.Sprint(v)
		if lo.Contains(options, s) {
			return nil
		}
		return fmt.Errorf("%q is not one of %s", s, strings.Join(lo.Compact(options), ", "))
	}
}

func between(low, high int) Validator {
	return func(v any) error {
		n, ok := v.(int)
		if !ok {
			return fmt.Errorf("%v is not an integer", v)
		}
		if n < low || n > high {
			return fmt.Errorf("%d out of range [%d, %d]", n, low, high)
		}
		return nil
	}
}
