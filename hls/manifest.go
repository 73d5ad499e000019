package hls

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/anisan-cli/anistream/playback"
	"github.com/grafov/m3u8"
)

// ErrEmptyManifest is returned for a master playlist without variants.
var ErrEmptyManifest = errors.New("manifest has no variants")

// DecodeError is returned for playlists that are not valid HLS.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode playlist: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// Variant is one rendition of the ladder and its media playlist once loaded.
type Variant struct {
	Level playback.Level
	URI   string

	playlist *Playlist
}

// Manifest is the parsed entry point of a stream.
type Manifest struct {
	Variants []*Variant
	// Media is set when the entry point was a media playlist rather than a master.
	Media *Playlist
}

// Levels returns the ladder entries of the manifest.
func (m *Manifest) Levels() []playback.Level {
	levels := make([]playback.Level, len(m.Variants))
	for i, v := range m.Variants {
		levels[i] = v.Level
	}
	return levels
}

// Segment is a media segment with its absolute timing.
type Segment struct {
	Sequence uint64
	Start    float64
	Duration float64
	URI      string
	Key      *m3u8.Key
}

// Playlist is a decoded media playlist.
type Playlist struct {
	URL            string
	TargetDuration float64
	Closed         bool
	Segments       []Segment
}

// Duration is the sum of all segment durations.
func (p *Playlist) Duration() float64 {
	if len(p.Segments) == 0 {
		return 0
	}
	last := p.Segments[len(p.Segments)-1]
	return last.Start + last.Duration - p.Segments[0].Start
}

// At returns the segment covering t.
func (p *Playlist) At(t float64) (Segment, bool) {
	const epsilon = 1e-3
	for _, s := range p.Segments {
		if s.Start+s.Duration > t+epsilon {
			return s, true
		}
	}
	return Segment{}, false
}

// After returns the first segment with a sequence number of at least seq.
func (p *Playlist) After(seq uint64) (Segment, bool) {
	for _, s := range p.Segments {
		if s.Sequence >= seq {
			return s, true
		}
	}
	return Segment{}, false
}

// ParseManifest decodes either a master or a media playlist fetched from baseURL.
func ParseManifest(data []byte, baseURL string) (*Manifest, error) {
	list, kind, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	switch kind {
	case m3u8.MASTER:
		master := list.(*m3u8.MasterPlaylist)
		manifest := &Manifest{}
		for _, v := range master.Variants {
			if v == nil || v.Iframe || v.URI == "" {
				continue
			}
			manifest.Variants = append(manifest.Variants, &Variant{
				Level: playback.Level{
					ID:        len(manifest.Variants),
					Height:    parseHeight(v.Resolution),
					Bandwidth: int(v.Bandwidth),
				},
				URI: resolveReference(baseURL, v.URI),
			})
		}
		if len(manifest.Variants) == 0 {
			return nil, ErrEmptyManifest
		}
		return manifest, nil
	case m3u8.MEDIA:
		playlist := fromMedia(list.(*m3u8.MediaPlaylist), baseURL)
		return &Manifest{
			Variants: []*Variant{{
				Level:    playback.Level{ID: 0},
				URI:      baseURL,
				playlist: playlist,
			}},
			Media: playlist,
		}, nil
	default:
		return nil, &DecodeError{Err: errors.New("unknown playlist type")}
	}
}

// ParsePlaylist decodes a media playlist fetched from baseURL.
func ParsePlaylist(data []byte, baseURL string) (*Playlist, error) {
	list, kind, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if kind != m3u8.MEDIA {
		return nil, &DecodeError{Err: errors.New("expected a media playlist")}
	}
	return fromMedia(list.(*m3u8.MediaPlaylist), baseURL), nil
}

func fromMedia(media *m3u8.MediaPlaylist, baseURL string) *Playlist {
	playlist := &Playlist{
		URL:            baseURL,
		TargetDuration: media.TargetDuration,
		Closed:         media.Closed,
	}

	// a key stays in effect until the next key tag
	key := media.Key
	start := 0.0
	for i, seg := range media.Segments {
		if seg == nil {
			continue
		}
		if seg.Key != nil {
			key = seg.Key
		}
		var segKey *m3u8.Key
		if key != nil && key.Method != "" && key.Method != "NONE" {
			k := *key
			k.URI = resolveReference(baseURL, k.URI)
			segKey = &k
		}
		playlist.Segments = append(playlist.Segments, Segment{
			Sequence: media.SeqNo + uint64(i),
			Start:    start,
			Duration: seg.Duration,
			URI:      resolveReference(baseURL, seg.URI),
			Key:      segKey,
		})
		start += seg.Duration
	}

	return playlist
}

func parseHeight(resolution string) int {
	_, h, ok := strings.Cut(strings.ToLower(resolution), "x")
	if !ok {
		return 0
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0
	}
	return height
}
