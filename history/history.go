// Package history persists resume positions of played episodes.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/where"
	"github.com/metafates/gache"
	"github.com/samber/lo"
)

// Finished is the watched fraction after which an episode no longer resumes.
const Finished = 0.95

// minPosition is the position below which nothing is worth resuming.
const minPosition = 5.0

// Entry is the saved progress of one episode.
type Entry struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Position  float64   `json:"position"`
	Duration  float64   `json:"duration"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Watched returns the watched fraction in [0, 1].
func (e *Entry) Watched() float64 {
	if e.Duration <= 0 {
		return 0
	}
	return lo.Clamp(e.Position/e.Duration, 0, 1)
}

// Resumable reports whether playback should restart from Position.
func (e *Entry) Resumable() bool {
	return e.Position >= minPosition && e.Watched() < Finished
}

// cacher provides a disk-backed registry of playback progress.
var cacher = gache.New[map[string]*Entry](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Key identifies an episode: its title when known, its URL without the query otherwise.
// Signed URLs change on every resolution, so the query is not part of the key.
func Key(title, url string) string {
	if title = strings.TrimSpace(title); title != "" {
		return strings.ToLower(title)
	}
	url, _, _ = strings.Cut(url, "?")
	url, _, _ = strings.Cut(url, "#")
	return url
}

// Get returns every saved entry by key.
func Get() (map[string]*Entry, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// List returns saved entries, most recent first.
func List() ([]*Entry, error) {
	saved, err := Get()
	if err != nil {
		return nil, err
	}

	entries := lo.Values(saved)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

// Resume returns the position to resume the episode from, if any.
func Resume(key string) (float64, bool) {
	saved, err := Get()
	if err != nil {
		return 0, false
	}

	entry, ok := saved[key]
	if !ok || !entry.Resumable() {
		return 0, false
	}
	return entry.Position, true
}

// Save records the progress of an episode. Positions too early to resume are ignored.
func Save(entry Entry) error {
	if entry.Key == "" {
		entry.Key = Key(entry.Title, entry.URL)
	}
	if entry.Position < minPosition {
		return nil
	}

	saved, err := Get()
	if err != nil {
		return err
	}

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}
	saved[entry.Key] = &entry

	return cacher.Set(saved)
}

// Remove permanently deletes an entry.
func Remove(key string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, key)
	return cacher.Set(saved)
}
