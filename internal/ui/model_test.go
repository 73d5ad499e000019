package ui

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestModel(t *testing.T) {
	Convey("Given a notifier", t, func() {
		m := &Model{}

		Convey("Strings should become notifications", func() {
			So(m.Update("quality locked"), ShouldNotBeNil)
			So(m.Notification(), ShouldEqual, "quality locked")
			So(m.View("a\nb"), ShouldContainSubstring, "b  \033[90mquality locked")
		})

		Convey("A stale clear should not remove a newer notification", func() {
			m.Update("first")
			stale := ClearNotificationMsg{at: m.notifiedAt.Add(-1)}
			m.Update(stale)
			So(m.Notification(), ShouldEqual, "first")

			m.Update(ClearNotificationMsg{at: m.notifiedAt})
			So(m.Notification(), ShouldBeEmpty)
		})

		Convey("Without a notification the view should be unchanged", func() {
			So(m.View("content"), ShouldEqual, "content")
		})
	})
}
