package cmd

import (
	"os"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/open"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

type wherePath struct {
	flag     string
	short    mo.Option[string]
	title    string
	resolve  func() string
	advanced bool
}

var wherePaths = []wherePath{
	{"config", mo.Some("c"), "Config", where.Config, false},
	{"sources", mo.Some("s"), "Episode source scripts", where.Sources, false},
	{"recordings", mo.Some("r"), "Recordings", where.Recordings, false},
	{"logs", mo.Some("l"), "Logs", where.Logs, false},
	{"cache", mo.None[string](), "Cache", where.Cache, true},
	{"skips", mo.None[string](), "Skip times", where.Skips, true},
	{"history", mo.None[string](), "Watch history", where.History, true},
	{"temp", mo.None[string](), "Temporary files", where.Temp, true},
}

func init() {
	rootCmd.AddCommand(whereCmd)

	for _, p := range wherePaths {
		usage := p.title + " path"
		if short, ok := p.short.Get(); ok {
			whereCmd.Flags().BoolP(p.flag, short, false, usage)
		} else {
			whereCmd.Flags().Bool(p.flag, false, usage)
		}
		if p.advanced {
			lo.Must0(whereCmd.Flags().MarkHidden(p.flag))
		}
	}
	whereCmd.MarkFlagsMutuallyExclusive(lo.Map(wherePaths, func(p wherePath, _ int) string {
		return p.flag
	})...)

	whereCmd.Flags().BoolP("open", "o", false, "Open the path in the file manager")
	whereCmd.SetOut(os.Stdout)
}

var whereCmd = &cobra.Command{
	Use:     "where",
	Short:   "Show the paths anistream uses",
	Example: "  anistream where --sources --open",
	Run: func(cmd *cobra.Command, args []string) {
		if p, ok := lo.Find(wherePaths, func(p wherePath) bool {
			return lo.Must(cmd.Flags().GetBool(p.flag))
		}); ok {
			path := p.resolve()
			cmd.Println(path)
			if lo.Must(cmd.Flags().GetBool("open")) {
				handleErr(open.Start(path))
			}
			return
		}

		header := style.New().Bold(true).Foreground(color.HiPurple).Render
		visible := lo.Reject(wherePaths, func(p wherePath, _ int) bool {
			return p.advanced
		})
		for i, p := range visible {
			if i > 0 {
				cmd.Println()
			}
			cmd.Printf("%s %s\n%s\n", header(p.title), style.Fg(color.Yellow)("--"+p.flag), p.resolve())
		}
	},
}
