package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"strings"
	"text/template"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/source"
	"github.com/anisan-cli/anistream/source/script"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// sourcesCmd groups the commands managing episode source scripts.
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage episode source scripts",
}

func completionScripts(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	names, err := script.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesListCmd.Flags().BoolP("raw", "r", false, "Suppress the header in the output")
	sourcesListCmd.SetOut(os.Stdout)
}

// sourcesListCmd displays the installed scripts.
var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Display the installed episode source scripts",
	Run: func(cmd *cobra.Command, args []string) {
		names, err := script.List()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("raw")) {
			for _, name := range names {
				cmd.Println(name)
			}
			return
		}

		cmd.Println(style.New().Foreground(color.HiBlue).Bold(true).Render("Scripts:"))
		for _, name := range names {
			cmd.Println(icon.Get(icon.Lua), name)
		}
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesRemoveCmd)

	sourcesRemoveCmd.Flags().StringArrayP("name", "n", []string{}, "Name of the script(s) to uninstall")
	lo.Must0(sourcesRemoveCmd.RegisterFlagCompletionFunc("name", completionScripts))
}

// sourcesRemoveCmd uninstalls scripts.
var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Permanently uninstall episode source scripts",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range lo.Must(cmd.Flags().GetStringArray("name")) {
			handleErr(filesystem.API().Remove(script.Path(name)))
			fmt.Printf("%s successfully removed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(name))
		}
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesInstallCmd)
}

// sourcesInstallCmd downloads a script and checks that it loads.
var sourcesInstallCmd = &cobra.Command{
	Use:     "install [url]",
	Short:   "Install or update an episode source script from a URL",
	Args:    cobra.ExactArgs(1),
	Example: "  anistream sources install https://example.com/scripts/gogo.lua",
	Run: func(cmd *cobra.Command, args []string) {
		erase := util.PrintErasable(fmt.Sprintf("%s Downloading %s...", icon.Get(icon.Progress), args[0]))
		name, updated, err := script.Install(cmd.Context(), args[0])
		erase()
		handleErr(err)

		if updated {
			fmt.Printf("%s installed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(name))
		} else {
			fmt.Printf("%s %s is up to date\n", icon.Get(icon.Success), style.Fg(color.Yellow)(name))
		}
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesGenCmd)

	sourcesGenCmd.Flags().StringP("name", "n", "", "Name of the new script")
	sourcesGenCmd.Flags().StringP("url", "u", "", "Base URL of the site the script resolves episodes from")

	lo.Must0(sourcesGenCmd.MarkFlagRequired("name"))
	lo.Must0(sourcesGenCmd.MarkFlagRequired("url"))
}

// sourcesGenCmd scaffolds a script from the template.
var sourcesGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Scaffold a new episode source script",
	Long:  `Generate a boilerplate Lua script defining the episode sources function.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SetOut(os.Stdout)

		author := "Anonymous"
		if usr, err := user.Current(); err == nil {
			author = usr.Username
		}

		s := struct {
			Name             string
			URL              string
			EpisodeSourcesFn string
			Author           string
		}{
			Name:             lo.Must(cmd.Flags().GetString("name")),
			URL:              lo.Must(cmd.Flags().GetString("url")),
			EpisodeSourcesFn: constant.EpisodeSourcesFn,
			Author:           author,
		}

		funcMap := template.FuncMap{
			"repeat": strings.Repeat,
			"plus":   func(a, b int) int { return a + b },
			"max":    func(n ...int) int { return lo.Max(n) },
		}

		tmpl, err := template.New("source").Funcs(funcMap).Parse(constant.SourceTemplate)
		handleErr(err)

		target := script.Path(s.Name)
		f, err := filesystem.API().Create(target)
		handleErr(err)

		defer util.Ignore(f.Close)

		handleErr(tmpl.Execute(f, s))

		cmd.Println(target)
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesRunCmd)
	sourcesRunCmd.SetOut(os.Stdout)
}

// sourcesRunCmd runs a script and prints the episode sources it returns.
var sourcesRunCmd = &cobra.Command{
	Use:   "run [file] [id]",
	Short: "Run a Lua script and print the episode sources it returns",
	Long: `Load a Lua script, call its episode sources function with the given id and print the result as JSON.
Useful for script development and debugging.`,
	Args:    cobra.ExactArgs(2),
	Example: "  anistream sources run ./gogo.lua one-piece-episode-1000",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := script.Load(args[0])
		handleErr(err)
		defer s.Close()

		episode, err := s.EpisodeSources(args[1])
		handleErr(err)

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		handleErr(encoder.Encode(episode))
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesSchemaCmd)
	sourcesSchemaCmd.SetOut(os.Stdout)
}

// sourcesSchemaCmd prints the JSON schema of the episode sources input.
var sourcesSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of episode sources",
	Run: func(cmd *cobra.Command, args []string) {
		schema, err := source.Schema()
		handleErr(err)
		cmd.Println(string(schema))
	},
}
