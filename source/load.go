package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/network"
	"github.com/anisan-cli/anistream/resolve"
	"github.com/samber/lo"
)

// ErrNoSources is returned when an episode lists no playable source.
var ErrNoSources = errors.New("episode has no sources")

// Decode reads episode sources as JSON and validates them.
func Decode(r io.Reader) (*EpisodeSources, error) {
	var sources EpisodeSources
	if err := json.NewDecoder(r).Decode(&sources); err != nil {
		return nil, fmt.Errorf("decode episode sources: %w", err)
	}

	if err := sources.Validate(); err != nil {
		return nil, err
	}

	return &sources, nil
}

// Validate drops entries without a usable URL and reports ErrNoSources when nothing is left.
func (e *EpisodeSources) Validate() error {
	e.Sources = lo.Filter(e.Sources, func(s Stream, _ int) bool {
		return resolve.Validate(s.URL) == nil
	})
	e.Subtitles = lo.Filter(e.Subtitles, func(s Subtitle, _ int) bool {
		return resolve.Validate(s.URL) == nil
	})

	if len(e.Sources) == 0 {
		return ErrNoSources
	}
	return nil
}

// Load reads episode sources from a file path, an http(s) URL or "-" for stdin.
func Load(ctx context.Context, location string, stdin io.Reader) (*EpisodeSources, error) {
	switch {
	case location == "-":
		return Decode(stdin)
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return fetch(ctx, location)
	default:
		file, err := filesystem.API().Open(location)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return Decode(file)
	}
}

func fetch(ctx context.Context, location string) (*EpisodeSources, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", constant.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := network.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch episode sources: %s", resp.Status)
	}

	return Decode(resp.Body)
}
