package util

import (
	"testing"

	"github.com/anisan-cli/anistream/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSanitizeFilename(t *testing.T) {
	Convey("Given script names", t, func() {
		Convey("Unsafe characters should become one underscore", func() {
			So(SanitizeFilename("gogo: anime?.lua"), ShouldEqual, "gogo_anime_.lua")
			So(SanitizeFilename("a  b"), ShouldEqual, "a_b")
		})

		Convey("Edge separators should be trimmed", func() {
			So(SanitizeFilename("-zoro-"), ShouldEqual, "zoro")
			So(SanitizeFilename("__x__"), ShouldEqual, "x")
		})
	})
}

func TestQuantify(t *testing.T) {
	Convey("Counts should pick the right noun", t, func() {
		So(Quantify(1, "fragment", "fragments"), ShouldEqual, "1 fragment")
		So(Quantify(0, "fragment", "fragments"), ShouldEqual, "0 fragments")
		So(Quantify(12, "fragment", "fragments"), ShouldEqual, "12 fragments")
	})
}

func TestFileStem(t *testing.T) {
	Convey("Extensions should be dropped from the base name", t, func() {
		So(FileStem("/scripts/gogo.lua"), ShouldEqual, "gogo")
		So(FileStem("gogo"), ShouldEqual, "gogo")
		So(FileStem("dir.d/gogo"), ShouldEqual, "gogo")
	})
}

func TestClamp(t *testing.T) {
	Convey("Values should be bounded", t, func() {
		So(Clamp(1.3, 0, 1), ShouldEqual, 1.0)
		So(Clamp(-0.2, 0, 1), ShouldEqual, 0.0)
		So(Clamp(0.25, 0.25, 4), ShouldEqual, 0.25)
		So(Clamp(2, 1, 3), ShouldEqual, 2)
	})
}

func TestDelete(t *testing.T) {
	Convey("Given an in-memory tree", t, func() {
		filesystem.SetMemMapFs()
		defer filesystem.SetOsFs()

		So(filesystem.API().WriteFile("/cache/a/b", []byte("x"), 0o644), ShouldBeNil)
		So(filesystem.API().WriteFile("/single", []byte("x"), 0o644), ShouldBeNil)

		Convey("Directories should be removed recursively", func() {
			So(Delete("/cache"), ShouldBeNil)
			exists, _ := filesystem.API().Exists("/cache/a/b")
			So(exists, ShouldBeFalse)
		})

		Convey("Files should be removed", func() {
			So(Delete("/single"), ShouldBeNil)
			exists, _ := filesystem.API().Exists("/single")
			So(exists, ShouldBeFalse)
		})

		Convey("Missing paths should fail", func() {
			So(Delete("/missing"), ShouldNotBeNil)
		})
	})
}
