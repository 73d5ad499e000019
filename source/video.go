package source

import (
	"net/url"
	"strings"

	"github.com/anisan-cli/anistream/constant"
)

// Stream is one server of an episode.
type Stream struct {
	// URL of the manifest or the file.
	URL string `json:"url" jsonschema:"required"`
	// IsM3U8 marks HLS sources whose URL does not carry the extension.
	IsM3U8 bool `json:"isM3U8,omitempty"`
	// Quality label (e.g. "1080p", "auto").
	Quality string `json:"quality,omitempty"`
}

// String returns the quality or host for display.
func (s Stream) String() string {
	if s.Quality != "" {
		return s.Quality
	}
	if parsed, err := url.Parse(s.URL); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return s.URL
}

// markHLS appends the HLS MIME marker as a fragment so the resolver classifies the URL as HLS.
// Fragments are never sent to the server.
func markHLS(u string) string {
	if strings.Contains(u, "#") {
		return u + "," + constant.MimeHLS
	}
	return u + "#" + constant.MimeHLS
}
