package player

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/anisan-cli/anistream/playback"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeMPV speaks enough of the JSON-IPC protocol to drive the backend.
type fakeMPV struct {
	ln       net.Listener
	mu       sync.Mutex
	conns    []*fakeConn
	commands [][]any
	reply    func(cmd []any) any
}

type fakeConn struct {
	mu   sync.Mutex
	conn net.Conn
}

func (c *fakeConn) send(v any) {
	data, _ := json.Marshal(v)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.conn.Write(append(data, '\n'))
}

func newFakeMPV(t *testing.T) *fakeMPV {
	ln, err := net.Listen("unix", filepath.Join(t.TempDir(), "mpv.sock"))
	if err != nil {
		t.Fatal(err)
	}

	f := &fakeMPV{ln: ln, reply: func([]any) any { return nil }}
	go f.serve()
	return f
}

func (f *fakeMPV) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		fc := &fakeConn{conn: conn}
		f.mu.Lock()
		f.conns = append(f.conns, fc)
		f.mu.Unlock()
		go f.handle(fc)
	}
}

func (f *fakeMPV) handle(c *fakeConn) {
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		var cmd ipcCommand
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			continue
		}
		f.mu.Lock()
		f.commands = append(f.commands, cmd.Command)
		reply := f.reply
		f.mu.Unlock()

		c.send(map[string]any{"data": reply(cmd.Command), "error": "success"})
	}
}

// broadcast sends an event to every open client, as mpv does.
func (f *fakeMPV) broadcast(event map[string]any) {
	f.mu.Lock()
	conns := append([]*fakeConn(nil), f.conns...)
	f.mu.Unlock()
	for _, c := range conns {
		c.send(event)
	}
}

func (f *fakeMPV) sent(name string) [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]any
	for _, cmd := range f.commands {
		if len(cmd) > 0 && cmd[0] == name {
			out = append(out, cmd)
		}
	}
	return out
}

func (f *fakeMPV) close() {
	_ = f.ln.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		_ = c.conn.Close()
	}
}

func receive(ch <-chan playback.MediaEvent) playback.MediaEvent {
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		return nil
	}
}

func TestMPVArguments(t *testing.T) {
	Convey("Given an mpv backend", t, func() {
		m := NewMPV()
		m.socketPath = "/tmp/anistream-test.sock"

		Convey("It should pass only the IPC socket and idle options", func() {
			So(m.args(), ShouldContain, "--input-ipc-server=/tmp/anistream-test.sock")
			So(m.args(), ShouldContain, "--idle=yes")
		})

		Convey("It should play HLS and common containers natively", func() {
			So(m.CanPlayType("application/vnd.apple.mpegurl"), ShouldBeTrue)
			So(m.CanPlayType("video/mp4"), ShouldBeTrue)
			So(m.CanPlayType("text/html"), ShouldBeFalse)
		})
	})

	Convey("Header fields should be sorted and unescaped", t, func() {
		So(headerFields(map[string]string{
			"User-Agent": "Mozilla/5.0 (X11, Linux)",
			"Referer":    "https://site.example/",
		}), ShouldResemble, []string{
			"Referer: https://site.example/",
			"User-Agent: Mozilla/5.0 (X11, Linux)",
		})
		So(headerFields(nil), ShouldBeEmpty)
	})

	Convey("Media targets should be sanitized", t, func() {
		_, err := sanitizeMediaTarget("--script=evil.lua")
		So(err, ShouldNotBeNil)
		_, err = sanitizeMediaTarget("file:///etc/passwd")
		So(err, ShouldNotBeNil)
		_, err = sanitizeMediaTarget("https://a\nb")
		So(err, ShouldNotBeNil)

		target, err := sanitizeMediaTarget(" https://cdn.example/a.m3u8 ")
		So(err, ShouldBeNil)
		So(target, ShouldEqual, "https://cdn.example/a.m3u8")

		So(sanitizeTitle("Episode\t1\n"), ShouldEqual, "Episode 1")
	})

	Convey("Cache state should map to buffered ranges", t, func() {
		ranges := cacheRanges(map[string]any{
			"seekable-ranges": []any{
				map[string]any{"start": 0.0, "end": 30.5},
				map[string]any{"start": 60.0, "end": 50.0},
			},
		})
		So(ranges, ShouldResemble, []playback.TimeRange{{Start: 0, End: 30.5}})
		So(cacheRanges("unavailable"), ShouldBeNil)
	})
}

func TestMPVSession(t *testing.T) {
	Convey("Given a backend attached to a running mpv", t, func() {
		fake := newFakeMPV(t)
		defer fake.close()

		m := NewMPV()
		So(m.attach(fake.ln.Addr().String()), ShouldBeNil)
		m.started = true
		defer m.listener.Stop()

		events := make(chan playback.MediaEvent, 16)
		m.Subscribe(func(ev playback.MediaEvent) { events <- ev })

		// observers are registered before events flow
		deadline := time.Now().Add(2 * time.Second)
		for len(fake.sent("observe_property")) < len(observed) && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		So(fake.sent("observe_property"), ShouldHaveLength, len(observed))

		Convey("Setting a source should send the headers then load the file", func() {
			So(m.SetSource("https://cdn.example/ep1.mp4", map[string]string{"Referer": "https://site.example/"}), ShouldBeNil)

			props := fake.sent("set_property")
			So(props[0], ShouldResemble, []any{"set_property", "http-header-fields", []any{"Referer: https://site.example/"}})
			So(fake.sent("loadfile"), ShouldResemble, [][]any{{"loadfile", "https://cdn.example/ep1.mp4", "replace"}})
		})

		Convey("Property changes should become media events", func() {
			fake.broadcast(map[string]any{"event": "file-loaded"})
			So(receive(events), ShouldResemble, playback.Loaded{})

			fake.broadcast(map[string]any{"event": "property-change", "id": 1, "name": "time-pos", "data": 12.5})
			So(receive(events), ShouldResemble, playback.TimeUpdate{Time: 12.5})
			So(m.CurrentTime(), ShouldEqual, 12.5)

			fake.broadcast(map[string]any{"event": "property-change", "id": 4, "name": "paused-for-cache", "data": true})
			So(receive(events), ShouldResemble, playback.Waiting{})

			fake.broadcast(map[string]any{"event": "end-file", "reason": "eof"})
			So(receive(events), ShouldResemble, playback.MediaEnded{})
		})

		Convey("A pause from the mpv window should be reported", func() {
			fake.broadcast(map[string]any{"event": "property-change", "id": 3, "name": "pause", "data": false})
			So(receive(events), ShouldResemble, playback.PlayStateChanged{Playing: true})
		})

		Convey("A completed seek should report the landing position", func() {
			fake.mu.Lock()
			fake.reply = func(cmd []any) any {
				if len(cmd) == 2 && cmd[0] == "get_property" && cmd[1] == "time-pos" {
					return 90.0
				}
				return nil
			}
			fake.mu.Unlock()

			fake.broadcast(map[string]any{"event": "seek"})
			fake.broadcast(map[string]any{"event": "playback-restart"})
			So(receive(events), ShouldResemble, playback.Seeked{Time: 90})
		})

		Convey("Subtitle tracks should be tracked by their mpv ids", func() {
			url := "https://p.example/subtitle-proxy?url=x"
			fake.mu.Lock()
			fake.reply = func(cmd []any) any {
				if len(cmd) == 2 && cmd[1] == "track-list" {
					return []any{
						map[string]any{"id": 1.0, "type": "video"},
						map[string]any{"id": 3.0, "type": "sub", "external-filename": url},
					}
				}
				return nil
			}
			fake.mu.Unlock()

			tracks := m.TextTracks()
			id, err := tracks.Add(playback.SubtitleTrack{Language: "en"}, url)
			So(err, ShouldBeNil)
			So(id, ShouldEqual, 3)
			So(tracks.Len(), ShouldEqual, 1)

			So(tracks.SetMode(id, playback.TrackShowing), ShouldBeNil)
			So(fake.sent("set_property"), ShouldContain, []any{"set_property", "sid", 3.0})

			So(tracks.RemoveAll(), ShouldBeNil)
			So(fake.sent("sub-remove"), ShouldResemble, [][]any{{"sub-remove", 3.0}})
			So(tracks.Len(), ShouldEqual, 0)
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Known backends should be constructed by name", t, func() {
		b, err := New("MPV")
		So(err, ShouldBeNil)
		So(b, ShouldHaveSameTypeAs, &MPV{})
		So(b.Close(), ShouldBeNil)

		b, err = New("headless")
		So(err, ShouldBeNil)
		So(b.CanPlayType("video/mp4"), ShouldBeFalse)
		So(b.Close(), ShouldBeNil)

		_, err = New("vlc")
		So(err, ShouldNotBeNil)
	})
}
