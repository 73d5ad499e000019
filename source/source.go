// Package source defines the episode sources input: the playable streams of one episode,
// the headers they require, their subtitles and the intro/outro intervals.
package source

import (
	"fmt"
	"strings"

	"github.com/anisan-cli/anistream/playback"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// EpisodeSources is what a provider returns for one episode.
type EpisodeSources struct {
	// Title is displayed by the player. Optional.
	Title string `json:"title,omitempty" jsonschema:"description=Display title of the episode"`
	// Sources are the alternative servers for the episode, in preference order.
	Sources []Stream `json:"sources" jsonschema:"required,minItems=1"`
	// Headers are required by the upstream host for every request of the episode.
	Headers map[string]string `json:"headers,omitempty" jsonschema:"description=HTTP headers required by the upstream host"`
	// Subtitles are the available subtitle files.
	Subtitles []Subtitle `json:"subtitles,omitempty"`
	Intro     *playback.Interval `json:"intro,omitempty" jsonschema:"description=Intro interval in seconds"`
	Outro     *playback.Interval `json:"outro,omitempty" jsonschema:"description=Outro interval in seconds"`
	// MalID and Episode identify the episode on MyAnimeList for intro/outro lookups.
	MalID   int `json:"malId,omitempty"`
	Episode int `json:"episode,omitempty"`
}

// Subtitle is one subtitle file of an episode.
type Subtitle struct {
	Label string `json:"label,omitempty"`
	Lang  string `json:"lang" jsonschema:"required"`
	URL   string `json:"url" jsonschema:"required"`
}

// Track converts the subtitle into a playback track.
func (s Subtitle) Track() playback.SubtitleTrack {
	return playback.SubtitleTrack{Label: s.Label, Language: s.Lang, URL: s.URL}
}

// Servers returns a display name for every source.
func (e *EpisodeSources) Servers() []string {
	return lo.Map(e.Sources, func(s Stream, i int) string {
		return fmt.Sprintf("#%d %s", i+1, s.String())
	})
}

// Playback builds the playback source for the server at index i.
// Subtitles are ordered by the preferred language.
func (e *EpisodeSources) Playback(i int, preferredLanguage string) (playback.Source, error) {
	if i < 0 || i >= len(e.Sources) {
		return playback.Source{}, fmt.Errorf("server %d out of range [1, %d]", i+1, len(e.Sources))
	}

	stream := e.Sources[i]
	src := playback.Source{
		URL:     stream.URL,
		Headers: e.Headers,
		Title:   e.Title,
		Subtitles: lo.Map(SortSubtitles(e.Subtitles, preferredLanguage), func(s Subtitle, _ int) playback.SubtitleTrack {
			return s.Track()
		}),
		Intro: interval(e.Intro),
		Outro: interval(e.Outro),
	}

	// an explicit isM3U8 flag on a URL without the extension still marks it as HLS
	if stream.IsM3U8 && !strings.Contains(strings.ToLower(stream.URL), ".m3u8") {
		src.URL = markHLS(stream.URL)
	}

	return src, nil
}

func interval(i *playback.Interval) mo.Option[playback.Interval] {
	if i == nil || !i.Valid() {
		return mo.None[playback.Interval]()
	}
	return mo.Some(*i)
}
