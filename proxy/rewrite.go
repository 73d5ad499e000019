package proxy

import (
	"bufio"
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/anisan-cli/anistream/resolve"
)

var uriAttribute = regexp.MustCompile(`URI="([^"]*)"`)

// Rewrite routes every reference of a playlist fetched from base back through the proxy.
// Nested playlists go to the manifest route and everything else to the segment route,
// both carrying the upstream headers.
func Rewrite(playlist []byte, base string, headers map[string]string, resolver *resolve.Resolver) []byte {
	baseURL, err := url.Parse(base)
	if err != nil {
		return playlist
	}

	route := func(ref string) string {
		parsed, err := url.Parse(strings.TrimSpace(ref))
		if err != nil {
			return ref
		}
		abs := baseURL.ResolveReference(parsed).String()
		if resolve.IsHLS(parsed.Path) {
			res, err := resolver.Resolve(abs, headers)
			if err != nil {
				return ref
			}
			return res.PlaybackURL
		}
		return resolver.SegmentURL(abs, headers)
	}

	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(playlist))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			out.WriteString(line)
		case strings.HasPrefix(trimmed, "#"):
			out.WriteString(uriAttribute.ReplaceAllStringFunc(line, func(attr string) string {
				ref := uriAttribute.FindStringSubmatch(attr)[1]
				if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "skd:") {
					return attr
				}
				return `URI="` + route(ref) + `"`
			}))
		default:
			out.WriteString(route(trimmed))
		}
		out.WriteByte('\n')
	}

	return out.Bytes()
}
