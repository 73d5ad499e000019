package open

import (
	"testing"

	"github.com/anisan-cli/anistream/constant"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCommand(t *testing.T) {
	Convey("Each platform should use its own opener", t, func() {
		cmd, ok := command(constant.Linux, "/tmp/recordings")
		So(ok, ShouldBeTrue)
		So(cmd.Args, ShouldResemble, []string{"xdg-open", "/tmp/recordings"})

		cmd, ok = command(constant.Darwin, "https://example.com")
		So(ok, ShouldBeTrue)
		So(cmd.Args[0], ShouldEqual, "open")

		cmd, ok = command(constant.Android, "x")
		So(ok, ShouldBeTrue)
		So(cmd.Args[0], ShouldEqual, "termux-open")

		_, ok = command("plan9", "x")
		So(ok, ShouldBeFalse)
	})
}
