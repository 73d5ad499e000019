package media

import (
	"fmt"
	"sync"

	"github.com/anisan-cli/anistream/playback"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Track is an attached text track.
type Track struct {
	ID    int
	Track playback.SubtitleTrack
	URL   string
	Mode  playback.TextTrackMode
}

// Tracks is an in-memory text track list.
type Tracks struct {
	mu     sync.Mutex
	tracks []Track
	nextID int
}

func (t *Tracks) Add(track playback.SubtitleTrack, url string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.tracks = append(t.tracks, Track{ID: id, Track: track, URL: url, Mode: playback.TrackHidden})
	return id, nil
}

func (t *Tracks) SetMode(id int, mode playback.TextTrackMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, i, ok := lo.FindIndexOf(t.tracks, func(tr Track) bool { return tr.ID == id })
	if !ok {
		return fmt.Errorf("text track %d not found", id)
	}
	t.tracks[i].Mode = mode
	return nil
}

func (t *Tracks) RemoveAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = nil
	return nil
}

func (t *Tracks) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

// Showing returns the track currently displayed.
func (t *Tracks) Showing() mo.Option[Track] {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := lo.Find(t.tracks, func(tr Track) bool { return tr.Mode == playback.TrackShowing })
	if !ok {
		return mo.None[Track]()
	}
	return mo.Some(tr)
}
