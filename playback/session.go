package playback

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/metrics"
	"github.com/anisan-cli/anistream/resolve"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

// Stats summarizes the quality of experience of a session.
type Stats struct {
	StartupTime   time.Duration
	Stalls        int
	Downgrades    int
	LevelSwitches int
	Fragments     int
	Bytes         int64
	Recoveries    int
}

// Session is one playback of one source.
//
// Every state change runs on the session goroutine: public methods, adaptive client
// events, media events and timers are posted to it and never interleave.
// Once closed, queued and late work is dropped.
type Session struct {
	id       string
	cfg      Config
	src      Source
	media    Media
	resolver *resolve.Resolver
	engines  EngineFactory
	now      func() time.Time
	log      *logrus.Entry

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	// mu guards ops and changed.
	mu      sync.Mutex
	ops     []func()
	wake    chan struct{}
	last    atomic.Pointer[Snapshot]
	changed chan struct{}

	// Everything below is owned by the session goroutine.
	state       State
	err         error
	res         resolve.Resolution
	adaptive    bool
	engine      Engine
	engineGen   int
	unsubscribe func()
	timers      []*time.Timer
	stopPoll    func()
	loadedAt    time.Time

	levels      Ladder
	level       int
	auto        bool
	viewportCap int
	wantPlay    bool

	current   float64
	duration  float64
	playing   bool
	volume    float64
	rate      float64
	buffered  float64
	buffering BufferingState
	lastSeek  mo.Option[float64]

	subtitle mo.Option[SubtitleTrack]
	subGen   int

	skips []*skipper

	netRecoveries   int
	mediaRecoveries int
	stats           Stats
}

func newSession(c *Controller, src Source) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	s := &Session{
		id:          id,
		cfg:         c.cfg,
		src:         src,
		media:       c.media,
		resolver:    c.resolver,
		engines:     c.engines,
		now:         c.now,
		log:         log.WithFields(log.Fields{"session": id}),
		ctx:         ctx,
		cancel:      cancel,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		changed:     make(chan struct{}),
		level:       AutoLevel,
		auto:        true,
		viewportCap: AutoLevel,
		volume:      c.cfg.Volume,
		rate:        1,
	}

	if intro, ok := src.Intro.Get(); ok {
		if k := newSkipper(Intro, intro, c.cfg.AutoSkipIntro); k != nil {
			s.skips = append(s.skips, k)
		}
	}
	if outro, ok := src.Outro.Get(); ok {
		if k := newSkipper(Outro, outro, c.cfg.AutoSkipOutro); k != nil {
			s.skips = append(s.skips, k)
		}
	}

	snap := s.snapshot()
	s.last.Store(&snap)
	return s
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the latest published state.
func (s *Session) Snapshot() Snapshot {
	return *s.last.Load()
}

// Changed returns a channel closed at the next published state change.
func (s *Session) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Done is closed once the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Await blocks until pred holds for a published snapshot.
func (s *Session) Await(ctx context.Context, pred func(Snapshot) bool) (Snapshot, error) {
	for {
		changed := s.Changed()
		snap := s.Snapshot()
		if pred(snap) {
			return snap, nil
		}

		select {
		case <-changed:
		case <-s.done:
			snap = s.Snapshot()
			if pred(snap) {
				return snap, nil
			}
			return snap, ErrSessionClosed
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}

		s.mu.Lock()
		ops := s.ops
		s.ops = nil
		s.mu.Unlock()

		for _, op := range ops {
			if s.ctx.Err() != nil {
				return
			}
			op()
		}
	}
}

// post queues op on the session goroutine. It reports false once the session is closed.
// It never blocks, so media elements may emit events from inside session calls.
func (s *Session) post(op func()) bool {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	s.ops = append(s.ops, op)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// call runs op on the session goroutine and waits for its result.
func (s *Session) call(op func() error) error {
	result := make(chan error, 1)
	if !s.post(func() { result <- op() }) {
		return ErrSessionClosed
	}

	select {
	case err := <-result:
		return err
	case <-s.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrSessionClosed
		}
	}
}

// after runs op on the session goroutine once d has elapsed, unless the session is torn down first.
func (s *Session) after(d time.Duration, op func()) {
	s.timers = append(s.timers, time.AfterFunc(d, func() { s.post(op) }))
}

// every runs op on the session goroutine every d until stop is called.
func (s *Session) every(d time.Duration, op func()) (stop func()) {
	ticker := time.NewTicker(d)
	quit := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-quit:
				return
			case <-ticker.C:
				s.post(op)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(quit) }) }
}

// Close tears the session down: the adaptive client is destroyed, timers are cleared,
// text tracks are removed and the media element is reset before Close returns.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		_ = s.call(func() error {
			s.teardown()
			s.cancel()
			return nil
		})
		s.cancel()
		<-s.done
	})
}

func (s *Session) teardown() {
	s.stopGovernor()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.destroyEngine()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	s.subGen++
	if err := s.media.TextTracks().RemoveAll(); err != nil {
		s.log.WithError(err).Warn("remove text tracks")
	}
	if err := s.media.Reset(); err != nil {
		s.log.WithError(err).Warn("reset media")
	}

	s.playing = false
	s.log.WithFields(log.Fields{"state": s.state, "position": s.current}).Debug("session closed")
	s.publish()
}

func (s *Session) destroyEngine() {
	if s.engine == nil {
		return
	}
	s.engine.Destroy()
	s.engine = nil
	s.engineGen++
}

// start resolves the source and selects the playback path.
func (s *Session) start() error {
	metrics.SessionsStarted.Inc()
	s.loadedAt = s.now()
	s.transition(Loading)

	s.unsubscribe = s.media.Subscribe(func(ev MediaEvent) {
		s.post(func() { s.onMedia(ev) })
	})

	res, err := s.resolver.Resolve(s.src.URL, s.src.Headers)
	if err != nil {
		s.fail(err)
		return err
	}
	s.res = res
	s.wantPlay = s.cfg.Autoplay

	if err := s.media.SetVolume(s.volume); err != nil {
		s.log.WithError(err).Debug("set initial volume")
	}

	source, isSource := s.media.(MediaSource)
	mimeType := mimeOf(res)

	switch {
	case res.IsHLS && isSource && s.engines != nil:
		s.adaptive = true
		s.engineGen++
		gen := s.engineGen
		s.engine = s.engines(EngineOptions{
			Config:   s.cfg,
			Resolver: s.resolver,
			Headers:  s.src.Headers,
			Emit: func(ev Event) {
				s.post(func() {
					if s.engine != nil && s.engineGen == gen {
						s.onEngine(ev)
					}
				})
			},
		})
		s.engine.Attach(source)
		s.engine.Load(res.PlaybackURL)
		s.log.WithField("url", res.PlaybackURL).Info("adaptive playback")
	case s.media.CanPlayType(mimeType):
		_, headers := s.resolver.Route(res.PlaybackURL, s.src.Headers)
		if err := s.media.SetSource(res.PlaybackURL, headers); err != nil {
			err = &PlaybackFatalError{Cause: CauseNetwork, Err: err}
			s.fail(err)
			return err
		}
		s.log.WithFields(log.Fields{"url": res.PlaybackURL, "mime": mimeType}).Info("direct playback")
	default:
		err := &UnsupportedFormatError{MIME: mimeType}
		s.fail(err)
		return err
	}

	return nil
}

func mimeOf(res resolve.Resolution) string {
	if res.IsHLS {
		return constant.MimeHLS
	}
	if parsed, err := url.Parse(res.PlaybackURL); err == nil {
		if t := mime.TypeByExtension(path.Ext(parsed.Path)); t != "" {
			return t
		}
	}
	return constant.MimeMP4
}

func (s *Session) transition(to State) {
	if s.state == to {
		return
	}
	s.log.WithFields(log.Fields{"from": s.state, "to": to}).Debug("transition")
	s.state = to
	metrics.SessionTransitions.WithLabelValues(to.String()).Inc()
	s.publish()
}

// ready enters Ready and applies the deferred start actions.
func (s *Session) ready() {
	s.stats.StartupTime = s.now().Sub(s.loadedAt)
	metrics.StartupSeconds.Observe(s.stats.StartupTime.Seconds())
	s.transition(Ready)

	if s.adaptive {
		s.startGovernor()
	}
	if len(s.src.Subtitles) > 0 {
		first := s.src.Subtitles[0]
		if err := s.setSubtitle(&first); err != nil {
			s.log.WithError(err).Warn("activate default subtitle")
		}
	}
	if s.src.StartAt > 0 {
		if err := s.seekTo(s.src.StartAt, true); err != nil {
			s.log.WithError(err).Warn("resume position")
		}
	}
	s.evaluateSkips()

	if s.wantPlay {
		if err := s.play(); err != nil {
			s.log.WithError(err).Warn("autoplay")
		}
	}
}

func (s *Session) fail(err error) {
	if s.state == Error || s.state == Ended {
		return
	}

	s.err = err
	s.playing = false
	s.stopGovernor()
	s.destroyEngine()

	metrics.SessionErrors.WithLabelValues(causeOf(err)).Inc()
	s.log.WithError(err).Error("playback failed")
	s.transition(Error)
}

func causeOf(err error) string {
	switch e := err.(type) {
	case *PlaybackFatalError:
		return string(e.Cause)
	case *resolve.InvalidSourceError:
		return "invalid_source"
	case *UnsupportedFormatError:
		return "unsupported"
	case *ProxyUnavailableError:
		return "proxy"
	case *AccessDeniedError:
		return "access_denied"
	default:
		return string(CauseOther)
	}
}

func (s *Session) play() error {
	switch s.state {
	case Loading:
		s.wantPlay = true
		return nil
	case Playing:
		return nil
	case Ready, Paused:
	default:
		return fmt.Errorf("cannot play while %s", s.state)
	}

	if err := s.media.Play(); err != nil {
		return err
	}
	s.playing = true
	s.transition(Playing)
	return nil
}

func (s *Session) pause() error {
	switch s.state {
	case Loading:
		s.wantPlay = false
		return nil
	case Paused, Ready:
		return nil
	case Playing:
	default:
		return fmt.Errorf("cannot pause while %s", s.state)
	}

	if err := s.media.Pause(); err != nil {
		return err
	}
	s.playing = false
	s.transition(Paused)
	return nil
}

func (s *Session) clampTime(t float64) float64 {
	if t < 0 {
		return 0
	}
	if s.duration > 0 && t > s.duration {
		return s.duration
	}
	return t
}

// seekTo moves the playhead. Explicit seeks may re-arm skippable intervals.
func (s *Session) seekTo(target float64, explicit bool) error {
	switch s.state {
	case Ready, Playing, Paused:
	default:
		return fmt.Errorf("cannot seek while %s", s.state)
	}

	target = s.clampTime(target)
	if err := s.media.Seek(target); err != nil {
		return err
	}
	s.lastSeek = mo.Some(target)
	s.seeked(target, explicit)

	if s.adaptive && s.engine != nil && !Contains(s.media.Buffered(), target) {
		s.engine.StartLoad(target)
	}
	return nil
}

func (s *Session) seeked(t float64, explicit bool) {
	s.current = s.clampTime(t)
	s.buffered = 0
	s.refreshBuffered()
	if explicit {
		for _, k := range s.skips {
			k.seeked(s.current)
		}
	}
	s.publish()
}

func (s *Session) refreshBuffered() {
	if s.duration <= 0 {
		return
	}
	end := BufferedEnd(s.media.Buffered(), s.current)
	if fraction := lo.Clamp(end/s.duration, 0, 1); fraction > s.buffered {
		s.buffered = fraction
	}
}

func (s *Session) evaluateSkips() {
	switch s.state {
	case Ready, Playing, Paused:
	default:
		return
	}
	for _, k := range s.skips {
		target, ok := k.update(s.current)
		if !ok {
			continue
		}
		s.log.WithFields(log.Fields{"interval": k.kind, "to": target}).Info("auto skip")
		if err := s.seekTo(target, false); err != nil {
			s.log.WithError(err).Warn("auto skip")
		}
	}
}

func (s *Session) stall() {
	if s.buffering.IsBuffering {
		return
	}
	s.buffering.IsBuffering = true
	if s.buffering.LastProgress.IsZero() {
		s.buffering.LastProgress = s.now()
	}
	s.stats.Stalls++
	metrics.Stalls.Inc()
	s.publish()
}

func (s *Session) progress() {
	wasBuffering := s.buffering.IsBuffering
	s.buffering = BufferingState{LastProgress: s.now()}
	if wasBuffering {
		s.publish()
	}
}

func (s *Session) publish() {
	snap := s.snapshot()
	s.last.Store(&snap)

	s.mu.Lock()
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:               s.id,
		State:            s.state,
		Err:              s.err,
		Title:            s.src.Title,
		SourceURL:        s.src.URL,
		IsHLS:            s.res.IsHLS,
		CurrentTime:      s.current,
		Duration:         s.duration,
		Playing:          s.playing,
		Volume:           s.volume,
		Rate:             s.rate,
		BufferedFraction: s.buffered,
		Buffering:        s.buffering.IsBuffering,
		Levels:           s.levels,
		CurrentLevel:     s.level,
		AutoLevel:        s.auto,
		Subtitles:        s.src.Subtitles,
		Subtitle:         s.subtitle,
	}
	for _, k := range s.skips {
		switch k.kind {
		case Intro:
			snap.SkipIntroVisible = k.visible
		case Outro:
			snap.SkipOutroVisible = k.visible
		}
	}
	return snap
}
