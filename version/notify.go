package version

import (
	"fmt"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/util"
	"github.com/spf13/viper"
)

// ReleasePage is the download page of a release.
func ReleasePage(version string) string {
	return "https://github.com/anisan-cli/anistream/releases/tag/v" + version
}

// Notify prints a banner when a newer release exists.
// Lookup failures are silent.
func Notify() {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	erase := util.PrintErasable(icon.Get(icon.Progress) + " Checking for updates...")
	latest, err := Latest()
	erase()
	if err != nil {
		return
	}

	if newer, err := Compare(latest, constant.Version); err != nil || newer <= 0 {
		return
	}

	fmt.Printf("\n%s %s %s %s\n%s\n\n",
		style.Fg(color.Green)("▇▇▇"),
		"anistream",
		style.Bold(latest),
		style.Faint("is out, you have "+constant.Version),
		style.Faint(ReleasePage(latest)),
	)
}
