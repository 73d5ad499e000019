package playback

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeTrack struct {
	track SubtitleTrack
	url   string
	mode  TextTrackMode
	shows int
}

type fakeTracks struct {
	mu     sync.Mutex
	next   int
	tracks map[int]*fakeTrack
}

func (t *fakeTracks) Add(track SubtitleTrack, url string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.tracks[t.next] = &fakeTrack{track: track, url: url}
	return t.next, nil
}

func (t *fakeTracks) SetMode(id int, mode TextTrackMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tr, ok := t.tracks[id]; ok {
		tr.mode = mode
		if mode == TrackShowing {
			tr.shows++
		}
	}
	return nil
}

func (t *fakeTracks) RemoveAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = make(map[int]*fakeTrack)
	return nil
}

func (t *fakeTracks) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

func (t *fakeTracks) only() (fakeTrack, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tr := range t.tracks {
		return *tr, true
	}
	return fakeTrack{}, false
}

type fakeMedia struct {
	mu       sync.Mutex
	native   map[string]bool
	source   string
	headers  map[string]string
	playing  bool
	volume   float64
	rate     float64
	seeks    []float64
	buffered []TimeRange
	resets   int
	tracks   *fakeTracks
	nextSub  int
	subs     map[int]func(MediaEvent)
}

func newFakeMedia(native ...string) *fakeMedia {
	m := &fakeMedia{
		native: make(map[string]bool),
		tracks: &fakeTracks{tracks: make(map[int]*fakeTrack)},
		subs:   make(map[int]func(MediaEvent)),
	}
	for _, mime := range native {
		m.native[mime] = true
	}
	return m
}

func (m *fakeMedia) CanPlayType(mime string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.native[mime]
}

func (m *fakeMedia) SetSource(url string, headers map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source, m.headers = url, headers
	return nil
}

func (m *fakeMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = true
	return nil
}

func (m *fakeMedia) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	return nil
}

func (m *fakeMedia) Seek(position float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, position)
	return nil
}

func (m *fakeMedia) SetVolume(volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
	return nil
}

func (m *fakeMedia) SetRate(rate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
	return nil
}

func (m *fakeMedia) SetFullscreen(bool) error { return nil }
func (m *fakeMedia) CurrentTime() float64     { return 0 }
func (m *fakeMedia) Duration() float64        { return 0 }
func (m *fakeMedia) TextTracks() TextTracks   { return m.tracks }

func (m *fakeMedia) Buffered() []TimeRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TimeRange(nil), m.buffered...)
}

func (m *fakeMedia) Subscribe(fn func(MediaEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	id := m.nextSub
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *fakeMedia) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.source = ""
	m.playing = false
	return nil
}

func (m *fakeMedia) emit(ev MediaEvent) {
	m.mu.Lock()
	subs := make([]func(MediaEvent), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (m *fakeMedia) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *fakeMedia) seekLog() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.seeks...)
}

// fakeSource accepts fragments, which enables the adaptive path.
type fakeSource struct {
	*fakeMedia
	fragments []Fragment
	flushes   int
}

func newFakeSource() *fakeSource {
	return &fakeSource{fakeMedia: newFakeMedia()}
}

func (m *fakeSource) AppendFragment(f Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments = append(m.fragments, f)
	return nil
}

func (m *fakeSource) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
}

func (m *fakeSource) SetDuration(float64) {}
func (m *fakeSource) EndOfStream()        {}

type fakeEngine struct {
	mu         sync.Mutex
	opts       EngineOptions
	media      MediaSource
	loaded     string
	startLoads []float64
	caps       []int
	forced     []int
	recovers   int
	destroyed  bool
}

func (e *fakeEngine) Attach(media MediaSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.media = media
}

func (e *fakeEngine) Load(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = url
}

func (e *fakeEngine) StartLoad(position float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startLoads = append(e.startLoads, position)
}

func (e *fakeEngine) SetCurrentLevel(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forced = append(e.forced, id)
}

func (e *fakeEngine) CapAutoLevel(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.caps = append(e.caps, id)
}

func (e *fakeEngine) RecoverMediaError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recovers++
}

func (e *fakeEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed = true
}

func (e *fakeEngine) emit(ev Event) {
	e.opts.Emit(ev)
}

func (e *fakeEngine) isDestroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

func (e *fakeEngine) capLog() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.caps...)
}

func (e *fakeEngine) startLoadLog() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float64(nil), e.startLoads...)
}

type fakeEngines struct {
	mu  sync.Mutex
	all []*fakeEngine
}

func (f *fakeEngines) factory(opts EngineOptions) Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &fakeEngine{opts: opts}
	f.all = append(f.all, e)
	return e
}

func (f *fakeEngines) last() *fakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.all) == 0 {
		return nil
	}
	return f.all[len(f.all)-1]
}

// fakeClock is advanced by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.SubtitleReassertDelay = time.Millisecond
	// the governor is driven by hand unless a test shortens this
	cfg.StallPollInterval = time.Hour
	return cfg
}

func await(t *testing.T, s *Session, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := s.Await(ctx, pred)
	if err != nil {
		t.Fatalf("await: %v (state %s)", err, snap.State)
	}
	return snap
}

func inState(state State) func(Snapshot) bool {
	return func(s Snapshot) bool { return s.State == state }
}

// settle waits until every event posted so far has been handled.
func settle(s *Session) {
	_ = s.Stats()
}

var ladder = []Level{
	{ID: 0, Height: 360, Bandwidth: 800_000},
	{ID: 1, Height: 1080, Bandwidth: 5_000_000},
	{ID: 2, Height: 720, Bandwidth: 2_800_000},
}
