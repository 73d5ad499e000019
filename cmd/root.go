// Package cmd implements the anistream command line.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/network"
	"github.com/anisan-cli/anistream/playback"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/util"
	"github.com/anisan-cli/anistream/version"
	"github.com/anisan-cli/anistream/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the version")

	flags := rootCmd.PersistentFlags()

	flags.StringP("icons", "I", "", "Icons variant ("+strings.Join(icon.AvailableVariants(), ", ")+")")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, flags.Lookup("icons")))

	flags.String("proxy", "", "Base URL of the CORS proxy HLS sources are routed through")
	lo.Must0(viper.BindPFlag(key.ProxyBaseURL, flags.Lookup("proxy")))

	flags.Bool("tls-fingerprint", false, "Send upstream requests with a browser TLS fingerprint")
	lo.Must0(viper.BindPFlag(key.NetworkTLSFingerprint, flags.Lookup("tls-fingerprint")))

	flags.String("log-level", "", "Write logs at this level for this run (debug, info, warn...)")

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})
}

var rootCmd = &cobra.Command{
	Use:   constant.App + " [file|url|-]",
	Short: "An adaptive HLS player for anime episode sources",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - An adaptive HLS player for anime episode sources"),
	Example: "  anistream episode.json\n  anistream play --script gogo --id one-piece-episode-1000",
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if level := lo.Must(cmd.Flags().GetString("log-level")); level != "" {
			viper.Set(key.LogsWrite, true)
			viper.Set(key.LogsLevel, level)
			handleErr(log.Setup())
		}

		network.UseFingerprint(viper.GetBool(key.NetworkTLSFingerprint))
	},
	Run: func(cmd *cobra.Command, args []string) {
		switch {
		case lo.Must(cmd.Flags().GetBool("version")):
			versionCmd.Run(versionCmd, nil)
		case len(args) == 1:
			playCmd.SetContext(cmd.Context())
			playCmd.Run(playCmd, args)
		default:
			handleErr(cmd.Help())
		}
	},
}

// Execute runs the command named by os.Args.
func Execute() {
	go func() {
		_ = util.Delete(where.Temp())
	}()

	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// handleErr reports err in user terms and exits.
func handleErr(err error) {
	if err == nil {
		return
	}

	log.Error(err)
	_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.TrimSpace(playback.Message(err)))
	os.Exit(1)
}
