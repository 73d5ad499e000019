package hls

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/metrics"
	"github.com/anisan-cli/anistream/playback"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

// ErrNotAttached is reported when loading starts before a media source was attached.
var ErrNotAttached = errors.New("no media source attached")

const (
	// how often a full buffer is re-checked
	bufferPoll = 250 * time.Millisecond
	// live playback starts this many segments behind the edge
	liveEdgeSegments = 3
)

// Engine is the adaptive client. It keeps MaxBufferLength seconds of fragments
// ahead of the playhead and picks the level per fragment.
type Engine struct {
	cfg    playback.Config
	loader *Loader
	onEmit func(playback.Event)
	logger *logrus.Entry
	est    estimator

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}

	emitMu  sync.RWMutex
	// held around every media element write; Destroy takes it after cancel
	mediaMu sync.Mutex

	mu      sync.Mutex
	media   playback.MediaSource
	ladder  playback.Ladder
	manual  int
	capID   int
	pending mo.Option[float64]
	resync  bool

	// owned by the stream goroutine
	variants map[int]*Variant
	loadedAt map[int]time.Time
	keys     map[string][]byte
}

// New builds an engine for one session.
func New(opts playback.EngineOptions) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:      opts.Config,
		loader:   NewLoader(opts.Resolver, opts.Headers, opts.Config),
		onEmit:   opts.Emit,
		logger:   log.WithField("component", "hls"),
		ctx:      ctx,
		cancel:   cancel,
		wake:     make(chan struct{}, 1),
		manual:   playback.AutoLevel,
		capID:    playback.AutoLevel,
		variants: make(map[int]*Variant),
		loadedAt: make(map[int]time.Time),
		keys:     make(map[string][]byte),
	}
	e.loader.OnRetry = func(target string, attempt int, err error) {
		e.logger.WithFields(log.Fields{"url": target, "attempt": attempt}).Warn(err)
		e.emit(playback.EngineError{Kind: playback.NetworkError, Err: err})
	}
	return e
}

// Factory satisfies playback.EngineFactory.
func Factory(opts playback.EngineOptions) playback.Engine {
	return New(opts)
}

func (e *Engine) Attach(media playback.MediaSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.media = media
}

func (e *Engine) Load(url string) {
	go e.run(url)
}

func (e *Engine) StartLoad(position float64) {
	e.mu.Lock()
	e.pending = mo.Some(position)
	e.mu.Unlock()
	e.kick()
}

func (e *Engine) SetCurrentLevel(id int) {
	e.mu.Lock()
	e.manual = id
	e.mu.Unlock()
}

func (e *Engine) CapAutoLevel(id int) {
	e.mu.Lock()
	e.capID = id
	e.mu.Unlock()
}

func (e *Engine) RecoverMediaError() {
	e.mu.Lock()
	e.resync = true
	e.mu.Unlock()
	e.kick()
}

func (e *Engine) Destroy() {
	e.cancel()
	// wait for a media write and an emit in flight
	e.mediaMu.Lock()
	e.mediaMu.Unlock()
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
}

// mutate runs fn against the media element unless the engine is destroyed.
func (e *Engine) mutate(fn func() error) (bool, error) {
	e.mediaMu.Lock()
	defer e.mediaMu.Unlock()
	if e.ctx.Err() != nil {
		return false, nil
	}
	return true, fn()
}

func (e *Engine) emit(ev playback.Event) {
	e.emitMu.RLock()
	defer e.emitMu.RUnlock()
	if e.ctx.Err() == nil && e.onEmit != nil {
		e.onEmit(ev)
	}
}

func (e *Engine) fatal(kind playback.ErrorKind, err error) {
	if e.ctx.Err() != nil {
		return
	}
	e.logger.WithField("kind", kind).Error(err)
	e.emit(playback.EngineError{Kind: kind, Fatal: true, Err: err})
}

func (e *Engine) kick() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// sleep returns early when kicked and false once destroyed.
func (e *Engine) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-e.ctx.Done():
		return false
	case <-e.wake:
		return true
	case <-timer.C:
		return true
	}
}

// park blocks until the session asks for more work.
func (e *Engine) park() bool {
	select {
	case <-e.ctx.Done():
		return false
	case <-e.wake:
		return true
	}
}

func (e *Engine) run(manifestURL string) {
	res, err := e.loader.Fetch(e.ctx, manifestURL)
	if err != nil {
		e.fatal(playback.NetworkError, err)
		return
	}

	manifest, err := ParseManifest(res.Body, res.URL)
	if err != nil {
		e.fatal(playback.OtherError, err)
		return
	}

	for _, v := range manifest.Variants {
		e.variants[v.Level.ID] = v
		if v.playlist != nil {
			e.loadedAt[v.Level.ID] = time.Now()
		}
	}

	e.mu.Lock()
	e.ladder = playback.NewLadder(manifest.Levels())
	media := e.media
	e.mu.Unlock()

	if media == nil {
		e.fatal(playback.OtherError, ErrNotAttached)
		return
	}

	e.logger.WithField("levels", len(manifest.Variants)).Info("manifest parsed")
	e.emit(playback.ManifestParsed{
		Levels: manifest.Levels(),
		Live:   manifest.Media != nil && !manifest.Media.Closed,
	})

	e.stream(media)
}

type cursor struct {
	position float64
	level    int
	// live playlists are followed by sequence number
	seq      mo.Option[uint64]
	liveTime float64
	stalled  bool
	duration bool
}

func (e *Engine) stream(media playback.MediaSource) {
	c := cursor{level: -1}

	for e.ctx.Err() == nil {
		e.mu.Lock()
		pending, resync := e.pending, e.resync
		e.pending, e.resync = mo.None[float64](), false
		e.mu.Unlock()

		if resync {
			if ok, _ := e.mutate(func() error { media.Flush(); return nil }); !ok {
				return
			}
			c.position = media.CurrentTime()
		}
		if p, ok := pending.Get(); ok {
			c.position = p
		}

		level := e.pick()
		playlist, err := e.playlist(level.ID)
		if err != nil {
			kind := playback.NetworkError
			if errors.As(err, new(*DecodeError)) {
				kind = playback.OtherError
			}
			e.fatal(kind, err)
			if !e.park() {
				return
			}
			continue
		}

		if level.ID != c.level {
			c.level = level.ID
			e.emit(playback.LevelSwitched{Level: level.ID})
		}
		if playlist.Closed && !c.duration {
			c.duration = true
			if ok, _ := e.mutate(func() error { media.SetDuration(playlist.Duration()); return nil }); !ok {
				return
			}
		}

		seg, ok := e.next(&c, playlist)
		if !ok {
			if playlist.Closed {
				if ok, _ := e.mutate(func() error { media.EndOfStream(); return nil }); !ok {
					return
				}
				if !e.park() {
					return
				}
			} else if !e.sleep(targetDuration(playlist)) {
				return
			}
			continue
		}

		playhead := media.CurrentTime()
		if seg.Start-playhead > e.cfg.MaxBufferLength.Seconds() {
			if !e.sleep(bufferPoll) {
				return
			}
			continue
		}
		if !c.stalled && seg.Start > 0 && !playback.Contains(media.Buffered(), playhead) {
			c.stalled = true
			e.emit(playback.BufferStalled{})
		}

		if !e.load(media, level.ID, seg) {
			if e.ctx.Err() != nil || !e.park() {
				return
			}
			continue
		}

		c.stalled = false
		c.position = seg.Start + seg.Duration
		if !playlist.Closed {
			c.seq = mo.Some(seg.Sequence + 1)
			c.liveTime += seg.Duration
		}
	}
}

// next returns the segment at the cursor. Live segments are timed on the cursor's own timeline.
func (e *Engine) next(c *cursor, playlist *Playlist) (Segment, bool) {
	if playlist.Closed {
		return playlist.At(c.position)
	}

	seq, ok := c.seq.Get()
	if !ok && len(playlist.Segments) > 0 {
		first := max(len(playlist.Segments)-liveEdgeSegments, 0)
		seq = playlist.Segments[first].Sequence
		c.seq = mo.Some(seq)
	}

	seg, ok := playlist.After(seq)
	if ok {
		seg.Start = c.liveTime
	}
	return seg, ok
}

// load fetches, decrypts and appends one segment. It reports fatal errors itself.
func (e *Engine) load(media playback.MediaSource, level int, seg Segment) bool {
	res, err := e.loader.Fetch(e.ctx, seg.URI)
	if err != nil {
		e.fatal(playback.NetworkError, err)
		return false
	}
	e.est.sample(len(res.Body), res.Took)

	data := res.Body
	if seg.Key != nil {
		key, err := e.key(seg.Key.URI)
		if err != nil {
			e.fatal(playback.NetworkError, err)
			return false
		}
		if data, err = decrypt(data, key, seg.Key, seg.Sequence); err != nil {
			e.fatal(playback.MediaError, err)
			return false
		}
	}

	frag := playback.Fragment{
		Level:    level,
		Sequence: seg.Sequence,
		Start:    seg.Start,
		Duration: seg.Duration,
		Data:     data,
	}
	appended, err := e.mutate(func() error { return media.AppendFragment(frag) })
	if !appended {
		return false
	}
	if err != nil {
		e.fatal(playback.MediaError, err)
		return false
	}

	metrics.FragmentBytes.Add(float64(len(data)))
	e.emit(playback.FragBuffered{
		Level:    level,
		Start:    seg.Start,
		Duration: seg.Duration,
		Bytes:    len(data),
	})
	return true
}

func (e *Engine) pick() playback.Level {
	e.mu.Lock()
	manual, capID, ladder := e.manual, e.capID, e.ladder
	e.mu.Unlock()

	if level, ok := ladder.Find(manual).Get(); ok {
		return level
	}
	bps, measured := e.est.estimate()
	return choose(ladder, capID, bps, measured)
}

// playlist returns the media playlist of a level, reloading live playlists once they are stale.
func (e *Engine) playlist(id int) (*Playlist, error) {
	v := e.variants[id]
	if v.playlist != nil && (v.playlist.Closed || time.Since(e.loadedAt[id]) < targetDuration(v.playlist)) {
		return v.playlist, nil
	}

	res, err := e.loader.Fetch(e.ctx, v.URI)
	if err != nil {
		return nil, err
	}
	playlist, err := ParsePlaylist(res.Body, res.URL)
	if err != nil {
		return nil, err
	}

	v.playlist = playlist
	e.loadedAt[id] = time.Now()
	return playlist, nil
}

func (e *Engine) key(uri string) ([]byte, error) {
	if key, ok := e.keys[uri]; ok {
		return key, nil
	}

	res, err := e.loader.Fetch(e.ctx, uri)
	if err != nil {
		return nil, err
	}
	e.keys[uri] = res.Body
	return res.Body, nil
}

func targetDuration(p *Playlist) time.Duration {
	if p.TargetDuration <= 0 {
		return 2 * time.Second
	}
	return time.Duration(p.TargetDuration * float64(time.Second))
}
