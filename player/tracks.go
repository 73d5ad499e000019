package player

import (
	"fmt"
	"sync"

	"github.com/anisan-cli/anistream/playback"
	"github.com/samber/lo"
)

// textTracks maps the text track list onto mpv's external subtitle tracks.
type textTracks struct {
	mpv *MPV

	mu  sync.Mutex
	ids []int
}

// Add loads an external subtitle without selecting it and returns mpv's track id.
func (t *textTracks) Add(track playback.SubtitleTrack, url string) (int, error) {
	if _, err := t.mpv.sendCommand("sub-add", url, "auto", track.Name(), track.Language); err != nil {
		return 0, err
	}

	list, err := t.mpv.sendCommand("get_property", "track-list")
	if err != nil {
		return 0, err
	}

	id, ok := findSubtitle(list, url)
	if !ok {
		return 0, fmt.Errorf("subtitle %s not in track list", url)
	}

	t.mu.Lock()
	t.ids = append(t.ids, id)
	t.mu.Unlock()
	return id, nil
}

func (t *textTracks) SetMode(id int, mode playback.TextTrackMode) error {
	switch mode {
	case playback.TrackShowing:
		if err := t.mpv.Set("sid", id); err != nil {
			return err
		}
		return t.mpv.Set("sub-visibility", true)
	case playback.TrackHidden:
		return t.mpv.Set("sub-visibility", false)
	default:
		return t.mpv.Set("sid", "no")
	}
}

func (t *textTracks) RemoveAll() error {
	t.mu.Lock()
	ids := t.ids
	t.ids = nil
	t.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if _, err := t.mpv.sendCommand("sub-remove", id); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (t *textTracks) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}

// forget drops the ids of tracks mpv discarded with the previous file.
func (t *textTracks) forget() {
	t.mu.Lock()
	t.ids = nil
	t.mu.Unlock()
}

// findSubtitle returns the id of the newest subtitle track loaded from url.
func findSubtitle(list any, url string) (int, bool) {
	entries, ok := list.([]any)
	if !ok {
		return 0, false
	}

	matches := lo.FilterMap(entries, func(entry any, _ int) (int, bool) {
		track, ok := entry.(map[string]any)
		if !ok || track["type"] != "sub" || track["external-filename"] != url {
			return 0, false
		}
		id, ok := track["id"].(float64)
		return int(id), ok
	})
	if len(matches) == 0 {
		return 0, false
	}
	return lo.Max(matches), true
}
