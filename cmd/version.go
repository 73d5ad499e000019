package cmd

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
	"text/template"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/player"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Only print the version number")
}

var versionTemplate = lo.Must(template.New("version").Funcs(template.FuncMap{
	"faint":   style.Faint,
	"bold":    style.Bold,
	"magenta": style.Fg(color.Purple),
	"red":     style.Fg(color.Red),
}).Parse(`{{ magenta "▇▇▇" }} {{ magenta .App }}

  {{ faint "Version" }}      {{ bold .Version }}
  {{ faint "Git Commit" }}   {{ bold .Revision }}
  {{ faint "Build Date" }}   {{ bold .BuiltAt }}
  {{ faint "Built By" }}     {{ bold .BuiltBy }}
  {{ faint "Platform" }}     {{ bold .Platform }}
  {{ faint "Player" }}       {{ bold .Player }}{{ if .MissingMPV }} {{ red "(mpv not found)" }}{{ end }}
  {{ faint "Proxy" }}        {{ bold .Proxy }}
`))

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		defer version.Notify()

		name := viper.GetString(key.Player)
		_, lookErr := exec.LookPath("mpv")

		handleErr(versionTemplate.Execute(cmd.OutOrStdout(), struct {
			App, Version, Revision, BuiltAt, BuiltBy string
			Platform, Player, Proxy                  string
			MissingMPV                               bool
		}{
			App:        constant.App,
			Version:    constant.Version,
			Revision:   constant.Revision,
			BuiltAt:    strings.TrimSpace(constant.BuiltAt),
			BuiltBy:    constant.BuiltBy,
			Platform:   runtime.GOOS + "/" + runtime.GOARCH,
			Player:     name,
			Proxy:      lo.Ternary(viper.GetString(key.ProxyBaseURL) != "", viper.GetString(key.ProxyBaseURL), "direct"),
			MissingMPV: name == player.MPVName && lookErr != nil,
		}))
	},
}
