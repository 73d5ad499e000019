package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/history"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolP("json", "j", false, "Print the history as JSON")
	historyCmd.SetOut(os.Stdout)
}

// historyCmd lists the saved watch progress.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display the saved watch progress",
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := history.List()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(entries))
			return
		}

		if len(entries) == 0 {
			cmd.Println(style.Faint("No history yet"))
			return
		}

		for _, e := range entries {
			title := lo.Ternary(e.Title != "", e.Title, e.URL)
			progress := fmt.Sprintf("%3d%%", int(e.Watched()*100))
			at := time.Duration(e.Position * float64(time.Second)).Round(time.Second)

			mark := style.Fg(color.Green)(progress)
			if e.Resumable() {
				mark = style.Fg(color.Yellow)(progress)
			}

			cmd.Printf("%s %s %s\n", mark, style.Bold(title), style.Faint(fmt.Sprintf("at %s, %s", at, e.UpdatedAt.Format(time.DateOnly))))
			cmd.Println(style.Faint("     key: " + e.Key))
		}
	},
}

func init() {
	historyCmd.AddCommand(historyRemoveCmd)
}

func completionHistoryKeys(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	saved, err := history.Get()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return lo.Keys(saved), cobra.ShellCompDirectiveNoFileComp
}

// historyRemoveCmd forgets the progress of episodes.
var historyRemoveCmd = &cobra.Command{
	Use:               "remove [key...]",
	Short:             "Forget the saved progress of episodes",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completionHistoryKeys,
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range args {
			handleErr(history.Remove(k))
			fmt.Printf("%s removed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(k))
		}
	},
}
