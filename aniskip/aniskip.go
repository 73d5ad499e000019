// Package aniskip provides a client for the AniSkip API, used as a fallback source of intro and outro intervals.
package aniskip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/internal/cache"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/network"
	"github.com/anisan-cli/anistream/playback"
	"github.com/samber/mo"
)

// BaseURL of the skip-times endpoint.
var BaseURL = "https://api.aniskip.com/v1/skip-times"

// SkipTimes encapsulates the intervals for opening and ending sequences.
type SkipTimes struct {
	Opening  playback.Interval `json:"opening"`
	Ending   playback.Interval `json:"ending"`
	HasIntro bool              `json:"has_intro"`
	HasOutro bool              `json:"has_outro"`
}

// Intro returns the opening interval when one is known.
func (s *SkipTimes) Intro() mo.Option[playback.Interval] {
	if s == nil || !s.HasIntro || !s.Opening.Valid() {
		return mo.None[playback.Interval]()
	}
	return mo.Some(s.Opening)
}

// Outro returns the ending interval when one is known.
func (s *SkipTimes) Outro() mo.Option[playback.Interval] {
	if s == nil || !s.HasOutro || !s.Ending.Valid() {
		return mo.None[playback.Interval]()
	}
	return mo.Some(s.Ending)
}

type apiResponse struct {
	Found   bool `json:"found"`
	Results []struct {
		Interval struct {
			StartTime float64 `json:"start_time"`
			EndTime   float64 `json:"end_time"`
		} `json:"interval"`
		SkipType string `json:"skip_type"`
	} `json:"results"`
}

// cached also records misses so unknown episodes are not looked up again until the entry expires.
type cached struct {
	Found bool       `json:"found"`
	Times *SkipTimes `json:"times"`
}

// GetSkipTimes retrieves the skip intervals for an episode.
// Returns nil (not an error) if no skip times are available or the service is unreachable.
func GetSkipTimes(ctx context.Context, malID, episode int) (*SkipTimes, error) {
	if malID <= 0 || episode <= 0 {
		return nil, nil
	}

	key := cache.GenerateKey(strconv.Itoa(malID)+"/"+strconv.Itoa(episode), "aniskip")
	var entry cached
	if cache.Read(key, &entry) {
		if !entry.Found {
			return nil, nil
		}
		return entry.Times, nil
	}

	times, err := fetch(ctx, malID, episode)
	if err != nil {
		log.WithFields(log.Fields{"mal": malID, "episode": episode}).Warnf("aniskip lookup failed: %v", err)
		// degrade gracefully, the episode just has no skip affordance
		return nil, nil
	}

	if err := cache.Write(key, cached{Found: times != nil, Times: times}); err != nil {
		log.Warnf("cache aniskip response: %v", err)
	}

	return times, nil
}

func fetch(ctx context.Context, malID, episode int) (*SkipTimes, error) {
	url := fmt.Sprintf("%s/%d/%d?types=op&types=ed", BaseURL, malID, episode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", constant.UserAgent)

	resp, err := network.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aniskip API returned status %d", resp.StatusCode)
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("parse aniskip response: %w", err)
	}

	if !data.Found || len(data.Results) == 0 {
		return nil, nil
	}

	times := &SkipTimes{}
	for _, result := range data.Results {
		interval := playback.Interval{
			Start: result.Interval.StartTime,
			End:   result.Interval.EndTime,
		}
		switch result.SkipType {
		case "op":
			times.Opening = interval
			times.HasIntro = true
		case "ed":
			times.Ending = interval
			times.HasOutro = true
		}
	}

	return times, nil
}
