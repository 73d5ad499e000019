package filesystem

import (
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBackend(t *testing.T) {
	Convey("The backend should be swappable", t, func() {
		SetOsFs()
		So(API().Name(), ShouldEqual, "OsFs")

		SetMemMapFs()
		So(API().Name(), ShouldEqual, "MemMapFS")
	})
}

func TestWriteAtomic(t *testing.T) {
	Convey("Given an in-memory filesystem", t, func() {
		SetMemMapFs()
		defer SetOsFs()

		Convey("Missing parent directories should be created", func() {
			So(WriteAtomic("/a/b/file.lua", []byte("one"), 0o644), ShouldBeNil)

			data, err := API().ReadFile("/a/b/file.lua")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "one")
		})

		Convey("Existing files should be replaced without leftovers", func() {
			So(WriteAtomic("/file", []byte("one"), 0o644), ShouldBeNil)
			So(WriteAtomic("/file", []byte("two"), 0o644), ShouldBeNil)

			data, err := API().ReadFile("/file")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "two")

			exists, err := API().Exists("/file.tmp")
			So(err, ShouldBeNil)
			So(exists, ShouldBeFalse)
		})

		Convey("GacheFs should write through the backend", func() {
			So(GacheFs{}.MkdirAll("/cache", os.ModePerm), ShouldBeNil)
			f, err := GacheFs{}.OpenFile("/cache/x", os.O_CREATE|os.O_WRONLY, 0o644)
			So(err, ShouldBeNil)
			So(f.Close(), ShouldBeNil)

			exists, err := API().Exists("/cache/x")
			So(err, ShouldBeNil)
			So(exists, ShouldBeTrue)
		})
	})
}
