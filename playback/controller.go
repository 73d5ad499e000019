package playback

import (
	"sync"
	"time"

	"github.com/anisan-cli/anistream/resolve"
	"github.com/samber/mo"
)

// Controller owns the current session of one media element.
// At most one session is current; loading a new source disposes the previous one first.
type Controller struct {
	mu       sync.Mutex
	media    Media
	resolver *resolve.Resolver
	engines  EngineFactory
	cfg      Config
	now      func() time.Time
	current  *Session
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig sets the configuration used for new sessions.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

// WithEngine sets the adaptive client used for HLS sources on media elements that accept fragments.
func WithEngine(factory EngineFactory) Option {
	return func(c *Controller) {
		c.engines = factory
	}
}

// WithClock replaces the wall clock used for stall detection.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController binds a controller to a media element.
func NewController(media Media, resolver *resolve.Resolver, opts ...Option) *Controller {
	c := &Controller{
		media:    media,
		resolver: resolver,
		cfg:      DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.resolver == nil {
		c.resolver = resolve.New("")
	}
	c.cfg = c.cfg.normalize()
	return c
}

// Load disposes the current session and starts a new one for src.
// The returned session is never nil; synchronous failures also leave it in the Error state.
func (c *Controller) Load(src Source) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disposeLocked()

	s := newSession(c, src)
	c.current = s
	go s.run()

	return s, s.call(s.start)
}

// Current returns the current session.
func (c *Controller) Current() mo.Option[*Session] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return mo.None[*Session]()
	}
	return mo.Some(c.current)
}

// Stop disposes the current session and returns its final snapshot.
func (c *Controller) Stop() mo.Option[Snapshot] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return mo.None[Snapshot]()
	}
	s := c.current
	c.disposeLocked()
	return mo.Some(s.Snapshot())
}

func (c *Controller) disposeLocked() {
	if c.current == nil {
		return
	}
	c.current.Close()
	c.current = nil
}
