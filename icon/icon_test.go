package icon

import (
	"testing"

	"github.com/anisan-cli/anistream/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestGet(t *testing.T) {
	Convey("Every icon should render in every variant", t, func() {
		for _, variant := range AvailableVariants() {
			viper.Set(key.IconsVariant, variant)
			for i := range icons {
				So(Get(i), ShouldNotBeEmpty)
			}
		}
	})

	Convey("Playback icons should have plain renderings", t, func() {
		viper.Set(key.IconsVariant, plain)
		So(Get(Play), ShouldEqual, ">")
		So(Get(Pause), ShouldEqual, "||")
	})

	Convey("Without a variant icons should be omitted", t, func() {
		viper.Set(key.IconsVariant, "")
		So(Get(Lua), ShouldBeEmpty)
		So(Get(Icon(-1)), ShouldBeEmpty)
	})
}
