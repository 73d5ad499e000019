package cmd

import (
	"encoding/json"
	"os"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/config"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringToStringP("header", "H", map[string]string{}, "Upstream header to embed, e.g. -H Referer=https://site.example/")
	resolveCmd.Flags().BoolP("json", "j", false, "Print the result as JSON")
	resolveCmd.SetOut(os.Stdout)
}

// resolveCmd prints the playback URL a source resolves to.
var resolveCmd = &cobra.Command{
	Use:   "resolve [url]",
	Short: "Print the URL a source would be played from",
	Long: `Validate a source URL and print where it would be played from.
HLS sources are routed through the configured proxy with their headers embedded.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		headers := lo.Must(cmd.Flags().GetStringToString("header"))

		resolution, err := config.Resolver().Resolve(args[0], headers)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(map[string]any{
				"url":     resolution.PlaybackURL,
				"hls":     resolution.IsHLS,
				"proxied": resolution.Proxied,
				"warning": resolution.Warning,
			}))
			return
		}

		cmd.Println(resolution.PlaybackURL)
		if resolution.Warning != "" {
			cmd.PrintErrf("%s %s\n", style.Fg(color.Yellow)(icon.Get(icon.Mark)), resolution.Warning)
		}
	},
}
