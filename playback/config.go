package playback

import "time"

// Config holds every tunable of a playback session.
// One value is built per session and never mutated afterwards.
type Config struct {
	// StallThreshold is how long buffering may last before the governor lowers the quality.
	StallThreshold time.Duration
	// StallPollInterval is the governor cadence.
	StallPollInterval time.Duration

	// MaxAttempts bounds the attempts of a single manifest, key or fragment request.
	MaxAttempts int
	// RetryDelay is the fixed pause between two attempts.
	RetryDelay time.Duration
	// MaxRecoveries bounds the automatic recoveries from fatal network or media errors.
	MaxRecoveries int
	// MaxBufferLength is how much media the adaptive client keeps ahead of the playhead.
	MaxBufferLength time.Duration

	// MaxHeight caps the initial level at the player viewport height. Zero disables the cap.
	MaxHeight int
	// Autoplay starts playback as soon as the session is ready.
	Autoplay bool
	// AutoSkipIntro and AutoSkipOutro seek past the intervals instead of offering a skip.
	AutoSkipIntro bool
	AutoSkipOutro bool
	// Volume is the initial volume in [0, 1].
	Volume float64

	// SubtitleReassertDelay and SubtitleReassertAttempts bound how often the showing mode
	// of a freshly attached text track is re-applied.
	SubtitleReassertDelay    time.Duration
	SubtitleReassertAttempts int
}

// DefaultConfig returns the stock session configuration.
func DefaultConfig() Config {
	return Config{
		StallThreshold:           5 * time.Second,
		StallPollInterval:        time.Second,
		MaxAttempts:              5,
		RetryDelay:               time.Second,
		MaxRecoveries:            5,
		MaxBufferLength:          30 * time.Second,
		Autoplay:                 true,
		Volume:                   1,
		SubtitleReassertDelay:    150 * time.Millisecond,
		SubtitleReassertAttempts: 3,
	}
}

// normalize replaces unusable values with their defaults.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.StallThreshold <= 0 {
		c.StallThreshold = d.StallThreshold
	}
	if c.StallPollInterval <= 0 {
		c.StallPollInterval = d.StallPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.MaxRecoveries < 0 {
		c.MaxRecoveries = 0
	}
	if c.MaxBufferLength <= 0 {
		c.MaxBufferLength = d.MaxBufferLength
	}
	if c.Volume < 0 || c.Volume > 1 {
		c.Volume = d.Volume
	}
	if c.SubtitleReassertAttempts < 0 {
		c.SubtitleReassertAttempts = 0
	}
	return c
}
