package cmd

import (
	"fmt"
	"os"

	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/util"
	"github.com/anisan-cli/anistream/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type clearTarget struct {
	flag     string
	short    mo.Option[string]
	title    string
	location func() string
}

var clearTargets = []clearTarget{
	{"cache", mo.Some("c"), "Cache", where.Cache},
	{"history", mo.Some("s"), "Watch history", where.History},
	{"skips", mo.Some("k"), "Skip times", where.Skips},
	{"recordings", mo.None[string](), "Recordings", where.Recordings},
}

// diskUsage sums the sizes of the regular files under path.
func diskUsage(path string) int64 {
	var total int64
	_ = afero.Walk(filesystem.API(), path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}

func init() {
	rootCmd.AddCommand(clearCmd)

	clearCmd.Flags().BoolP("all", "a", false, "Clear everything below")
	for _, target := range clearTargets {
		usage := "Clear " + lo.Capitalize(target.flag)
		if short, ok := target.short.Get(); ok {
			clearCmd.Flags().BoolP(target.flag, short, false, usage)
		} else {
			clearCmd.Flags().Bool(target.flag, false, usage)
		}
	}
}

var clearCmd = &cobra.Command{
	Use:     "clear",
	Short:   "Remove cached data, the watch history or recordings",
	Example: "  anistream clear --cache --skips\n  anistream clear --all",
	Run: func(cmd *cobra.Command, args []string) {
		all := lo.Must(cmd.Flags().GetBool("all"))
		selected := lo.Filter(clearTargets, func(t clearTarget, _ int) bool {
			return all || lo.Must(cmd.Flags().GetBool(t.flag))
		})

		if len(selected) == 0 {
			handleErr(cmd.Help())
			return
		}

		for _, target := range selected {
			path := target.location()
			size := diskUsage(path)

			erase := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.title))
			err := util.Delete(path)
			erase()

			if err != nil && !os.IsNotExist(err) {
				handleErr(fmt.Errorf("clear %s: %w", target.flag, err))
			}

			fmt.Printf("%s %s cleared %s\n", icon.Get(icon.Success), target.title, style.Faint(fmt.Sprintf("(%d KiB)", size/1024)))
		}
	},
}
