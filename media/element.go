// Package media provides a headless media element that plays fragments fed by the adaptive client.
// It keeps a virtual playhead instead of decoding, which is what probing and recording need.
package media

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/anisan-cli/anistream/playback"
)

// Option configures an Element.
type Option func(*Element)

// WithRecorder tees every appended fragment to w in append order.
func WithRecorder(w io.Writer) Option {
	return func(e *Element) {
		e.recorder = w
	}
}

// Element is a playback.MediaSource without a decoder.
type Element struct {
	mu         sync.Mutex
	playing    bool
	waiting    bool
	ended      bool
	eos        bool
	fullscreen bool
	position   float64
	duration   float64
	volume     float64
	rate       float64
	ranges     []playback.TimeRange
	recorder   io.Writer
	recordErr  error
	tracks     *Tracks

	events *Events
}

// New returns an idle element. Close releases its event dispatcher.
func New(opts ...Option) *Element {
	e := &Element{
		volume: 1,
		rate:   1,
		tracks: &Tracks{},
		events: NewEvents(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close stops event delivery.
func (e *Element) Close() error {
	e.events.Close()
	return nil
}

// CanPlayType is always false: the element only plays what the adaptive client appends.
func (e *Element) CanPlayType(string) bool {
	return false
}

func (e *Element) SetSource(string, map[string]string) error {
	return playback.ErrUnsupported
}

func (e *Element) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ended {
		e.ended = false
		e.position = 0
	}
	e.playing = true
	e.checkBuffer()
	return nil
}

func (e *Element) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
	return nil
}

func (e *Element) Seek(position float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.duration > 0 {
		position = min(position, e.duration)
	}
	e.position = max(position, 0)
	e.ended = false
	e.events.Push(playback.Seeked{Time: e.position})
	e.events.Push(playback.TimeUpdate{Time: e.position})
	if e.waiting && playback.Contains(e.ranges, e.position) {
		e.waiting = false
		e.events.Push(playback.Resumed{})
	}
	e.checkBuffer()
	return nil
}

func (e *Element) SetVolume(volume float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = volume
	return nil
}

func (e *Element) SetRate(rate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
	return nil
}

func (e *Element) SetFullscreen(on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fullscreen = on
	return nil
}

func (e *Element) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *Element) Buffered() []playback.TimeRange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]playback.TimeRange(nil), e.ranges...)
}

func (e *Element) TextTracks() playback.TextTracks {
	return e.tracks
}

// Tracks returns the concrete text track list.
func (e *Element) Tracks() *Tracks {
	return e.tracks
}

func (e *Element) Subscribe(fn func(playback.MediaEvent)) func() {
	return e.events.Subscribe(fn)
}

func (e *Element) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.playing = false
	e.waiting = false
	e.ended = false
	e.eos = false
	e.position = 0
	e.duration = 0
	e.ranges = nil
	return e.tracks.RemoveAll()
}

func (e *Element) AppendFragment(f playback.Fragment) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recorder != nil && e.recordErr == nil {
		if _, err := e.recorder.Write(f.Data); err != nil {
			e.recordErr = err
			return err
		}
	}

	e.ranges = merge(append(e.ranges, playback.TimeRange{Start: f.Start, End: f.Start + f.Duration}))
	if e.waiting && playback.Contains(e.ranges, e.position) {
		e.waiting = false
		e.events.Push(playback.Resumed{})
	}
	return nil
}

func (e *Element) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ranges = nil
	e.eos = false
}

func (e *Element) SetDuration(duration float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if duration == e.duration {
		return
	}
	e.duration = duration
	e.events.Push(playback.DurationChange{Duration: duration})
}

func (e *Element) EndOfStream() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eos = true
}

// Playing reports whether the playhead is supposed to move.
func (e *Element) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing && !e.waiting
}

// Volume returns the current volume.
func (e *Element) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Advance moves the playhead by dt scaled by the rate, up to the end of the buffered range.
func (e *Element) Advance(dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing || e.waiting || e.ended {
		return
	}

	end := playback.BufferedEnd(e.ranges, e.position)
	target := min(e.position+dt.Seconds()*e.rate, end)
	if target != e.position {
		e.position = target
		e.events.Push(playback.TimeUpdate{Time: target})
	}
	if e.position < end {
		return
	}

	if e.eos || (e.duration > 0 && e.position >= e.duration) {
		e.ended = true
		e.playing = false
		e.events.Push(playback.MediaEnded{})
		return
	}
	e.waiting = true
	e.events.Push(playback.Waiting{})
}

// Run advances the playhead in real time until ctx is done.
func (e *Element) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Advance(tick)
		}
	}
}

// checkBuffer raises Waiting when playback is requested over an empty buffer.
func (e *Element) checkBuffer() {
	if e.playing && !e.waiting && !playback.Contains(e.ranges, e.position) {
		e.waiting = true
		e.events.Push(playback.Waiting{})
	}
}

func merge(ranges []playback.TimeRange) []playback.TimeRange {
	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].Start < ranges[j].Start
	})

	const gap = 0.1
	merged := ranges[:0]
	for _, r := range ranges {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End+gap {
			merged[n-1].End = max(merged[n-1].End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
