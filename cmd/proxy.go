package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/anisan-cli/anistream/auth"
	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/proxy"
	"github.com/anisan-cli/anistream/style"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(proxyCmd)
}

// proxyCmd groups the commands of the bundled proxy service.
var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run the bundled CORS proxy and manage its API key",
}

func init() {
	proxyCmd.AddCommand(proxyServeCmd)

	proxyServeCmd.Flags().StringP("listen", "l", "", "Address to listen on")
	lo.Must0(viper.BindPFlag(key.ProxyListen, proxyServeCmd.Flags().Lookup("listen")))

	proxyServeCmd.Flags().String("base-url", "", "Public URL of the proxy written into rewritten playlists")
	proxyServeCmd.Flags().Float64("rate-limit", 0, "Requests per second, 0 disables limiting")
	lo.Must0(viper.BindPFlag(key.ProxyRateLimit, proxyServeCmd.Flags().Lookup("rate-limit")))

	proxyServeCmd.Flags().Bool("require-key", false, "Require the stored API key as a bearer token")
	lo.Must0(viper.BindPFlag(key.ProxyRequireKey, proxyServeCmd.Flags().Lookup("require-key")))
}

// proxyServeCmd runs the proxy until interrupted.
var proxyServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the m3u8, segment and subtitle proxy routes",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var apiKey string
		if viper.GetBool(key.ProxyRequireKey) {
			var err error
			apiKey, err = auth.APIKey()
			if err != nil {
				handleErr(fmt.Errorf("no API key stored, run \"%s proxy login\" first: %w", rootCmd.Name(), err))
			}
		}

		server := proxy.New(proxy.Options{
			Listen:         viper.GetString(key.ProxyListen),
			BaseURL:        lo.Must(cmd.Flags().GetString("base-url")),
			RateLimit:      viper.GetFloat64(key.ProxyRateLimit),
			AllowedOrigins: viper.GetStringSlice(key.ProxyAllowedOrigins),
			APIKey:         apiKey,
		})

		fmt.Printf("%s Proxy listening on %s\n", icon.Get(icon.Link), style.Fg(color.Yellow)(server.BaseURL()))
		fmt.Println(style.Faint(fmt.Sprintf("Set %s to use it for playback", key.ProxyBaseURL)))

		handleErr(server.ListenAndServe(ctx))
	},
}

func init() {
	proxyCmd.AddCommand(proxyLoginCmd)
	proxyLoginCmd.Flags().StringP("key", "k", "", "API key to store")
	proxyLoginCmd.Flags().BoolP("generate", "g", false, "Generate a random API key")
	proxyLoginCmd.MarkFlagsMutuallyExclusive("key", "generate")
}

// proxyLoginCmd stores the API key in the system keyring.
var proxyLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the proxy API key in the system keyring",
	Long: `Store the proxy API key in the system keyring.
The key is sent as a bearer token to the configured proxy and required by "proxy serve" when proxy.require_key is set.`,
	Run: func(cmd *cobra.Command, args []string) {
		apiKey := lo.Must(cmd.Flags().GetString("key"))

		switch {
		case lo.Must(cmd.Flags().GetBool("generate")):
			apiKey = uuid.NewString()
		case apiKey == "":
			handleErr(survey.AskOne(&survey.Password{
				Message: "API key",
			}, &apiKey, survey.WithValidator(survey.Required)))
		}

		handleErr(auth.SetAPIKey(strings.TrimSpace(apiKey)))
		fmt.Printf("%s API key saved\n", icon.Get(icon.Success))
		if lo.Must(cmd.Flags().GetBool("generate")) {
			fmt.Println(apiKey)
		}
	},
}

func init() {
	proxyCmd.AddCommand(proxyLogoutCmd)
}

// proxyLogoutCmd removes the API key from the system keyring.
var proxyLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the proxy API key from the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(auth.DeleteAPIKey())
		fmt.Printf("%s API key removed\n", icon.Get(icon.Success))
	},
}
