package source

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SortSubtitles orders subtitles so the best match for the preferred language comes first.
// Exact matches win over two-letter codes, which win over fuzzy matches.
// The original order is kept among equals.
func SortSubtitles(subtitles []Subtitle, preferred string) []Subtitle {
	sorted := make([]Subtitle, len(subtitles))
	copy(sorted, subtitles)

	preferred = strings.TrimSpace(preferred)
	if preferred == "" {
		return sorted
	}

	rank := func(s Subtitle) int {
		for _, name := range []string{s.Lang, s.Label} {
			if strings.EqualFold(name, preferred) {
				return 0
			}
		}
		if len(s.Lang) == 2 && strings.HasPrefix(strings.ToLower(preferred), strings.ToLower(s.Lang)) {
			return 1
		}
		best := -1
		for _, name := range []string{s.Lang, s.Label} {
			if name == "" {
				continue
			}
			if d := fuzzy.RankMatchFold(preferred, name); d >= 0 && (best < 0 || d < best) {
				best = d
			}
		}
		if best < 0 {
			return 1 << 20
		}
		return best + 2
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return rank(sorted[i]) < rank(sorted[j])
	})

	return sorted
}
