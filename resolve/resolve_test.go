package resolve

import (
	"errors"
	"net/url"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestResolveValidation(t *testing.T) {
	Convey("Given placeholder or empty sources", t, func() {
		r := New("")

		for _, src := range []string{"", "   ", "undefined", "foo/undefined/bar", "https://host/undefined.m3u8"} {
			_, err := r.Resolve(src, nil)

			var invalid *InvalidSourceError
			So(errors.As(err, &invalid), ShouldBeTrue)
		}
	})
}

func TestResolveWithoutProxy(t *testing.T) {
	Convey("Given no proxy is configured", t, func() {
		r := New("")

		Convey("An HLS manifest should be returned unmodified with a warning", func() {
			res, err := r.Resolve("https://host/a.m3u8", nil)
			So(err, ShouldBeNil)
			So(res.PlaybackURL, ShouldEqual, "https://host/a.m3u8")
			So(res.IsHLS, ShouldBeTrue)
			So(res.Proxied, ShouldBeFalse)
			So(res.Warning, ShouldNotBeEmpty)
		})

		Convey("A direct file should be returned unmodified", func() {
			res, err := r.Resolve("https://host/a.mp4", nil)
			So(err, ShouldBeNil)
			So(res.PlaybackURL, ShouldEqual, "https://host/a.mp4")
			So(res.IsHLS, ShouldBeFalse)
			So(res.Warning, ShouldBeEmpty)
		})

		Convey("Subtitles and segments should not be rewritten", func() {
			So(r.SubtitleURL("https://x/en.vtt", nil), ShouldEqual, "https://x/en.vtt")
			So(r.SegmentURL("https://x/0.ts", nil), ShouldEqual, "https://x/0.ts")
		})
	})
}

func TestResolveWithProxy(t *testing.T) {
	Convey("Given a proxy base", t, func() {
		r := New("https://p.example/")

		Convey("An HLS manifest should be routed through m3u8-proxy", func() {
			res, err := r.Resolve("https://host/a.m3u8", nil)
			So(err, ShouldBeNil)
			So(res.PlaybackURL, ShouldEqual, "https://p.example/m3u8-proxy?url=https%3A%2F%2Fhost%2Fa.m3u8")
			So(res.Proxied, ShouldBeTrue)
		})

		Convey("The MIME marker should classify a source as HLS", func() {
			res, err := r.Resolve("https://host/play?type=application/vnd.apple.mpegurl", nil)
			So(err, ShouldBeNil)
			So(res.IsHLS, ShouldBeTrue)
			So(res.Proxied, ShouldBeTrue)
		})

		Convey("A direct file should never be proxied", func() {
			res, err := r.Resolve("https://host/a.mp4", map[string]string{"Referer": "https://site"})
			So(err, ShouldBeNil)
			So(res.PlaybackURL, ShouldEqual, "https://host/a.mp4")
		})

		Convey("Headers should be embedded in the proxied manifest URL", func() {
			headers := map[string]string{"Referer": "https://site/"}
			res, err := r.Resolve("https://host/a.m3u8", headers)
			So(err, ShouldBeNil)

			parsed, err := url.Parse(res.PlaybackURL)
			So(err, ShouldBeNil)
			target, decoded, err := DecodeRequest(parsed.Query())
			So(err, ShouldBeNil)
			So(target, ShouldEqual, "https://host/a.m3u8")
			So(decoded, ShouldResemble, headers)
		})

		Convey("Segment URLs should always carry the headers parameter", func() {
			u := r.SegmentURL("https://host/0.ts", nil)
			So(u, ShouldEqual, "https://p.example/ts-proxy?url=https%3A%2F%2Fhost%2F0.ts&headers=%7B%7D")
		})

		Convey("Only cross-origin subtitles should be proxied", func() {
			So(r.SubtitleURL("https://x/en.vtt", nil), ShouldEqual, "https://p.example/subtitle-proxy?url=https%3A%2F%2Fx%2Fen.vtt")
			So(r.SubtitleURL("subs/en.vtt", nil), ShouldEqual, "subs/en.vtt")
			So(r.SubtitleURL("https://p.example/static/en.vtt", nil), ShouldEqual, "https://p.example/static/en.vtt")
		})
	})
}

func TestRoute(t *testing.T) {
	Convey("Given session headers", t, func() {
		headers := map[string]string{"Referer": "https://site/", "Origin": "https://site"}

		Convey("Upstream requests should carry them directly", func() {
			r := New("https://p.example")
			target, direct := r.Route("https://host/seg.ts", headers)
			So(target, ShouldEqual, "https://host/seg.ts")
			So(direct, ShouldResemble, headers)
		})

		Convey("Proxy requests should carry only the proxy credentials", func() {
			r := New("https://p.example")
			r.APIKey = "secret"
			_, direct := r.Route("https://p.example/ts-proxy?url=x", headers)
			So(direct, ShouldResemble, map[string]string{"Authorization": "Bearer secret"})
		})
	})
}

func TestDecodeRequest(t *testing.T) {
	Convey("Given proxy query parameters", t, func() {
		Convey("A relative target should be rejected", func() {
			_, _, err := DecodeRequest(url.Values{"url": {"/a.m3u8"}})
			So(err, ShouldNotBeNil)
		})

		Convey("Malformed headers should be rejected", func() {
			_, _, err := DecodeRequest(url.Values{"url": {"https://h/a.m3u8"}, "headers": {"{"}})
			So(err, ShouldNotBeNil)
		})

		Convey("Missing headers should decode to an empty map", func() {
			_, headers, err := DecodeRequest(url.Values{"url": {"https://h/a.m3u8"}})
			So(err, ShouldBeNil)
			So(headers, ShouldBeEmpty)
		})
	})
}
