package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/anisan-cli/anistream/log"
)

// EventCallback receives property changes by property name and other events by event name.
type EventCallback func(name string, data any)

// observed are the properties whose changes mpv pushes to the listener.
var observed = []string{
	"time-pos",
	"duration",
	"pause",
	"paused-for-cache",
	"demuxer-cache-state",
}

// EventListener keeps a persistent IPC connection open and dispatches mpv events.
// Observers are registered on that same connection since mpv only notifies the observing client.
type EventListener struct {
	socketPath string
	callback   EventCallback

	mu   sync.Mutex
	conn net.Conn
	done chan struct{}
}

// NewEventListener creates a listener for the given socket.
func NewEventListener(socketPath string, callback EventCallback) *EventListener {
	return &EventListener{
		socketPath: socketPath,
		callback:   callback,
	}
}

// Start connects, registers the property observers and starts the read loop.
func (el *EventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.conn != nil {
		return nil
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	for i, name := range observed {
		if err := writeCommand(conn, []any{"observe_property", i + 1, name}); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el.conn = conn
	el.done = make(chan struct{})
	go el.readLoop(conn, el.done)

	log.WithField("socket", el.socketPath).Info("mpv event listener started")
	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (el *EventListener) Stop() {
	el.mu.Lock()
	conn, done := el.conn, el.done
	el.conn = nil
	el.mu.Unlock()

	if conn == nil {
		return
	}
	conn.Close()
	<-done
}

func (el *EventListener) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, readBufSize), 4*1024*1024)

	for scanner.Scan() {
		el.processEvent(scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		log.Warnf("event listener read error: %v", err)
	}
}

// processEvent parses and dispatches a single mpv event line.
func (el *EventListener) processEvent(line []byte) {
	var event map[string]any
	if err := json.Unmarshal(line, &event); err != nil {
		return
	}

	// replies to our observe commands carry no event
	eventType, ok := event["event"].(string)
	if !ok || el.callback == nil {
		return
	}

	if eventType == "property-change" {
		if name, _ := event["name"].(string); name != "" {
			el.callback(name, event["data"])
		}
		return
	}
	el.callback(eventType, event)
}
