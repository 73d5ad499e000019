package player

import (
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/media"
	"github.com/anisan-cli/anistream/playback"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second
)

// MPV is a playback.Media backed by an mpv process.
// mpv plays HLS itself, so sessions on this backend always take the direct path.
type MPV struct {
	// Binary is the mpv executable.
	Binary string

	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	// mu serializes IPC commands
	mu sync.Mutex

	startMu  sync.Mutex
	started  bool
	listener *EventListener
	events   *media.Events
	tracks   *textTracks

	state struct {
		sync.Mutex
		position  float64
		duration  float64
		ranges    []playback.TimeRange
		wantPause bool
		seeking   bool
		title     string
	}
}

// NewMPV creates an idle mpv backend. The process is spawned on the first source.
func NewMPV() *MPV {
	m := &MPV{
		Binary: "mpv",
		exited: make(chan struct{}),
		events: media.NewEvents(),
	}
	m.tracks = &textTracks{mpv: m}
	m.state.wantPause = true
	return m
}

// SetTitle sets the window title used for the next source.
func (m *MPV) SetTitle(title string) {
	m.state.Lock()
	m.state.title = sanitizeTitle(title)
	m.state.Unlock()
}

// CanPlayType is true for HLS manifests and any audio or video container.
func (m *MPV) CanPlayType(mime string) bool {
	mime = strings.ToLower(mime)
	switch {
	case mime == constant.MimeHLS, mime == constant.MimeHLSAlt:
		return true
	case strings.HasPrefix(mime, "video/"), strings.HasPrefix(mime, "audio/"):
		return true
	default:
		return false
	}
}

// SetSource loads rawURL, attaching headers to every request mpv makes for it.
func (m *MPV) SetSource(rawURL string, headers map[string]string) error {
	safeURL, err := sanitizeMediaTarget(rawURL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	if err := m.ensureStarted(); err != nil {
		return err
	}

	m.state.Lock()
	title := m.state.title
	m.state.position, m.state.duration, m.state.ranges = 0, 0, nil
	m.state.wantPause = true
	m.state.Unlock()

	if err := m.Set("http-header-fields", headerFields(headers)); err != nil {
		return err
	}
	if title != "" {
		if err := m.Set("force-media-title", title); err != nil {
			return err
		}
	}
	if err := m.Set("pause", true); err != nil {
		return err
	}

	_, err = m.sendCommand("loadfile", safeURL, "replace")
	return err
}

func (m *MPV) Play() error {
	m.setWantPause(false)
	return m.Set("pause", false)
}

func (m *MPV) Pause() error {
	m.setWantPause(true)
	return m.Set("pause", true)
}

func (m *MPV) setWantPause(pause bool) {
	m.state.Lock()
	m.state.wantPause = pause
	m.state.Unlock()
}

func (m *MPV) Seek(position float64) error {
	_, err := m.sendCommand("seek", position, "absolute")
	return err
}

func (m *MPV) SetVolume(volume float64) error {
	return m.Set("volume", volume*100)
}

func (m *MPV) SetRate(rate float64) error {
	return m.Set("speed", rate)
}

func (m *MPV) SetFullscreen(on bool) error {
	return m.Set("fullscreen", on)
}

// PictureInPicture keeps the window above all others, the closest mpv has to a floating player.
func (m *MPV) PictureInPicture(on bool) error {
	return m.Set("ontop", on)
}

func (m *MPV) CurrentTime() float64 {
	m.state.Lock()
	defer m.state.Unlock()
	return m.state.position
}

func (m *MPV) Duration() float64 {
	m.state.Lock()
	defer m.state.Unlock()
	return m.state.duration
}

func (m *MPV) Buffered() []playback.TimeRange {
	m.state.Lock()
	defer m.state.Unlock()
	return append([]playback.TimeRange(nil), m.state.ranges...)
}

func (m *MPV) TextTracks() playback.TextTracks {
	return m.tracks
}

func (m *MPV) Subscribe(fn func(playback.MediaEvent)) func() {
	return m.events.Subscribe(fn)
}

// Reset stops playback and leaves mpv idle.
func (m *MPV) Reset() error {
	if !m.IsRunning() {
		return nil
	}
	m.tracks.forget()
	_, err := m.sendCommand("stop")
	return err
}

// Set sets an mpv property.
func (m *MPV) Set(property string, value any) error {
	_, err := m.sendCommand("set_property", property, value)
	return err
}

// getFloatProperty retrieves a float64 mpv property via IPC.
func (m *MPV) getFloatProperty(name string) (float64, error) {
	data, err := m.sendCommand("get_property", name)
	if err != nil {
		return 0, err
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}
	return val, nil
}

// Wait returns a channel that is closed when the mpv process exits.
func (m *MPV) Wait() <-chan struct{} {
	return m.exited
}

// Socket returns the IPC socket path.
func (m *MPV) Socket() string {
	return m.socketPath
}

// IsRunning reports whether mpv is responding to IPC commands.
func (m *MPV) IsRunning() bool {
	if m.socketPath == "" {
		return false
	}

	select {
	case <-m.exited:
		return false
	default:
	}

	_, err := m.sendCommand("get_property", "pid")
	return err == nil
}

// Close shuts down the mpv process and cleans up resources.
func (m *MPV) Close() error {
	defer m.events.Close()

	if m.listener != nil {
		m.listener.Stop()
	}

	if m.socketPath == "" {
		return nil
	}

	_, _ = m.sendCommand("quit")

	if m.cmd != nil {
		select {
		case <-m.exited:
		case <-time.After(quitTimeout):
			terminate(m.cmd, m.exited, quitTimeout)
		}
	}

	_ = os.Remove(m.socketPath)
	return nil
}

func (m *MPV) ensureStarted() error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	if m.started {
		return nil
	}
	if err := m.spawn(); err != nil {
		return err
	}
	if err := m.attach(m.socketPath); err != nil {
		return err
	}
	m.started = true
	return nil
}

// attach starts listening on an mpv socket.
func (m *MPV) attach(socketPath string) error {
	m.socketPath = socketPath
	m.listener = NewEventListener(socketPath, m.handle)
	return m.listener.Start()
}

func (m *MPV) spawn() error {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Errorf("generate socket name: %w", err)
	}
	m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("%s-%x.sock", constant.App, randomBytes))

	// user configuration in mpv.conf is respected, so no --vo, --profile or --hwdec here
	m.cmd = exec.Command(m.Binary, m.args()...)
	detach(m.cmd)
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	m.exited = make(chan struct{})
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	if err := m.waitForSocket(); err != nil {
		select {
		case <-m.exited:
		default:
			log.Warnf("stopping mpv: socket never became ready")
			terminate(m.cmd, m.exited, quitTimeout)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	return nil
}

func (m *MPV) args() []string {
	return []string{
		"--no-terminal",
		"--really-quiet",
		"--input-ipc-server=" + m.socketPath,
		"--force-window=yes",
		"--idle=yes",
		"--keep-open=no",
	}
}

// waitForSocket polls until the mpv IPC socket is accepting connections.
func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

// handle translates mpv notifications into media events.
func (m *MPV) handle(name string, data any) {
	switch name {
	case "time-pos":
		if t, ok := data.(float64); ok {
			m.state.Lock()
			m.state.position = t
			m.state.Unlock()
			m.events.Push(playback.TimeUpdate{Time: t})
		}
	case "duration":
		if d, ok := data.(float64); ok {
			m.state.Lock()
			m.state.duration = d
			m.state.Unlock()
			m.events.Push(playback.DurationChange{Duration: d})
		}
	case "pause":
		paused, ok := data.(bool)
		if !ok {
			return
		}
		m.state.Lock()
		external := paused != m.state.wantPause
		m.state.wantPause = paused
		m.state.Unlock()
		if external {
			m.events.Push(playback.PlayStateChanged{Playing: !paused})
		}
	case "paused-for-cache":
		if waiting, ok := data.(bool); ok {
			if waiting {
				m.events.Push(playback.Waiting{})
			} else {
				m.events.Push(playback.Resumed{})
			}
		}
	case "demuxer-cache-state":
		ranges := cacheRanges(data)
		m.state.Lock()
		m.state.ranges = ranges
		m.state.Unlock()
	case "file-loaded":
		m.events.Push(playback.Loaded{})
	case "seek":
		m.state.Lock()
		m.state.seeking = true
		m.state.Unlock()
	case "playback-restart":
		m.state.Lock()
		seeking := m.state.seeking
		m.state.seeking = false
		position := m.state.position
		m.state.Unlock()
		if !seeking {
			return
		}
		// the observed time-pos may still predate the seek
		if t, err := m.getFloatProperty("time-pos"); err == nil {
			position = t
		}
		m.events.Push(playback.Seeked{Time: position})
	case "end-file":
		event, _ := data.(map[string]any)
		switch event["reason"] {
		case "eof":
			m.events.Push(playback.MediaEnded{})
		case "error":
			m.events.Push(playback.MediaFailed{Err: fmt.Errorf("mpv: %v", event["file_error"])})
		}
	}
}

// cacheRanges extracts the seekable ranges of a demuxer-cache-state value.
func cacheRanges(data any) []playback.TimeRange {
	state, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := state["seekable-ranges"].([]any)
	if !ok {
		return nil
	}

	ranges := make([]playback.TimeRange, 0, len(raw))
	for _, r := range raw {
		entry, ok := r.(map[string]any)
		if !ok {
			continue
		}
		start, okStart := entry["start"].(float64)
		end, okEnd := entry["end"].(float64)
		if okStart && okEnd && end > start {
			ranges = append(ranges, playback.TimeRange{Start: start, End: end})
		}
	}
	return ranges
}

// headerFields formats headers for mpv's http-header-fields list, sorted by name.
func headerFields(headers map[string]string) []string {
	fields := make([]string, 0, len(headers))
	for k, v := range headers {
		fields = append(fields, k+": "+v)
	}
	sort.Strings(fields)
	return fields
}

// sanitizeMediaTarget validates that a URL is safe to pass to mpv.
// Prevents flag injection from untrusted source scripts.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

// sanitizeTitle cleans up the title for mpv.
func sanitizeTitle(title string) string {
	t := strings.ReplaceAll(title, "\n", " ")
	t = strings.ReplaceAll(t, "\r", " ")
	t = strings.ReplaceAll(t, "\t", " ")
	t = strings.ReplaceAll(t, "\x00", "")
	return strings.TrimSpace(t)
}
