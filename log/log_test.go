package log

import (
	"testing"

	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/where"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Given logging is disabled", t, func() {
		viper.Set(key.LogsWrite, false)
		So(Setup(), ShouldBeNil)

		Convey("Entries should be accepted and discarded", func() {
			So(Enabled(), ShouldBeFalse)
			So(func() { WithField("session", "x").Info("ignored") }, ShouldNotPanic)
		})
	})

	Convey("Given logging is enabled", t, func() {
		viper.Set(key.LogsWrite, true)
		viper.Set(key.LogsLevel, "debug")
		defer viper.Set(key.LogsWrite, false)

		So(Setup(), ShouldBeNil)

		Convey("A log file should be created", func() {
			So(Enabled(), ShouldBeTrue)
			WithFields(Fields{"state": "loading"}).Debug("transition")
			files, err := filesystem.API().ReadDir(where.Logs())
			So(err, ShouldBeNil)
			So(files, ShouldNotBeEmpty)
		})
	})
}

func TestLevel(t *testing.T) {
	Convey("Given an unknown level", t, func() {
		viper.Set(key.LogsWrite, true)
		viper.Set(key.LogsLevel, "loud")
		defer func() {
			viper.Set(key.LogsWrite, false)
			viper.Set(key.LogsLevel, "info")
		}()

		So(Setup(), ShouldBeNil)

		Convey("Info should be used", func() {
			So(WithFields(nil).Logger.GetLevel().String(), ShouldEqual, "info")
		})
	})
}
