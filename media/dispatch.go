package media

import (
	"sync"

	"github.com/anisan-cli/anistream/playback"
)

// Events delivers media events in order on its own goroutine so that
// subscribers may call back into the element that pushed them.
type Events struct {
	mu     sync.Mutex
	queue  []playback.MediaEvent
	subs   map[int]func(playback.MediaEvent)
	nextID int
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewEvents starts a dispatcher. Close stops it.
func NewEvents() *Events {
	d := &Events{
		subs: make(map[int]func(playback.MediaEvent)),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.loop()
	return d
}

// Subscribe registers fn until the returned function is called.
func (d *Events) Subscribe(fn func(playback.MediaEvent)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.subs[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

// Push queues ev for every subscriber.
func (d *Events) Push(ev playback.MediaEvent) {
	d.mu.Lock()
	d.queue = append(d.queue, ev)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Close stops delivery. Queued events are dropped.
func (d *Events) Close() {
	d.once.Do(func() {
		close(d.done)
	})
}

func (d *Events) loop() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}

		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			ev := d.queue[0]
			d.queue = d.queue[1:]
			subs := make([]func(playback.MediaEvent), 0, len(d.subs))
			for _, fn := range d.subs {
				subs = append(subs, fn)
			}
			d.mu.Unlock()

			for _, fn := range subs {
				fn(ev)
			}
		}
	}
}
