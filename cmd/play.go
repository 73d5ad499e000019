package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/anisan-cli/anistream/aniskip"
	"github.com/anisan-cli/anistream/config"
	"github.com/anisan-cli/anistream/history"
	"github.com/anisan-cli/anistream/hls"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/media"
	"github.com/anisan-cli/anistream/playback"
	"github.com/anisan-cli/anistream/player"
	"github.com/anisan-cli/anistream/source"
	"github.com/anisan-cli/anistream/source/script"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/tui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// headlessTick is the playhead resolution of the headless backend.
const headlessTick = 250 * time.Millisecond

func init() {
	rootCmd.AddCommand(playCmd)

	addEpisodeFlags(playCmd)
	playCmd.Flags().StringP("player", "p", "", "Media element to use (mpv, headless)")
	lo.Must0(viper.BindPFlag(key.Player, playCmd.Flags().Lookup("player")))
	lo.Must0(playCmd.RegisterFlagCompletionFunc("player", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return player.Available, cobra.ShellCompDirectiveNoFileComp
	}))

	playCmd.Flags().BoolP("resume", "r", false, "Resume from the position saved in the watch history")
	playCmd.Flags().Bool("no-history", false, "Do not save the watch progress")
}

// playCmd plays an episode through the controls surface.
var playCmd = &cobra.Command{
	Use:   "play [file|url|-]",
	Short: "Play an episode from its resolved sources",
	Long: `Play an episode from its resolved sources.
The sources are read from a JSON file, a URL, standard input ("-"), or produced by an episode source script (--script).`,
	Example: `  anistream play episode.json
  anistream play --script gogo --id one-piece-episode-1000 --server 2`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		episode, err := loadEpisode(ctx, cmd, args)
		handleErr(err)
		applySkipTimes(ctx, episode)

		index, err := chooseServer(episode, lo.Must(cmd.Flags().GetInt("server")), nil)
		handleErr(err)

		opts := playOptions{
			player:  viper.GetString(key.Player),
			resume:  lo.Must(cmd.Flags().GetBool("resume")),
			history: viper.GetBool(key.HistorySave) && !lo.Must(cmd.Flags().GetBool("no-history")),
		}

		if opts.player == player.MPVName {
			CheckDependencies()
		}

		tried := make(map[int]bool)
		for {
			snapshot, err := playServer(ctx, episode, index, opts)
			if err == nil && snapshot.State != playback.Error {
				return
			}
			if err == nil {
				err = snapshot.Err
			}

			tried[index] = true
			if !playback.Retryable(err) || len(tried) == len(episode.Sources) || !isInteractive() {
				handleErr(err)
			}

			fmt.Printf("%s %s\n", icon.Get(icon.Fail), playback.Message(err))

			var retry bool
			handleErr(survey.AskOne(&survey.Confirm{
				Message: "Try another server?",
				Default: true,
			}, &retry))
			if !retry {
				return
			}

			index, err = chooseServer(episode, 0, tried)
			handleErr(err)
		}
	},
}

type playOptions struct {
	player  string
	resume  bool
	history bool
}

// addEpisodeFlags registers the flags that locate an episode and pick its server.
func addEpisodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("script", "s", "", "Episode source script producing the sources")
	lo.Must0(cmd.RegisterFlagCompletionFunc("script", completionScripts))
	cmd.Flags().String("id", "", "Episode identifier passed to the script")
	cmd.Flags().IntP("server", "n", 0, "Server to play (1-based). Prompts when unset and several exist")
	cmd.Flags().StringP("title", "t", "", "Title shown by the controls and used as the history key")
	cmd.Flags().Int("mal-id", 0, "MyAnimeList id used to look up intro/outro markers")
	cmd.Flags().IntP("episode", "e", 0, "Episode number used to look up intro/outro markers")
}

// loadEpisode reads the episode sources named by the arguments and flags.
func loadEpisode(ctx context.Context, cmd *cobra.Command, args []string) (*source.EpisodeSources, error) {
	var (
		episode *source.EpisodeSources
		err     error
	)

	name := lo.Must(cmd.Flags().GetString("script"))
	if name == "" && len(args) == 0 {
		name = viper.GetString(key.SourcesDefault)
	}

	switch {
	case name != "":
		id := lo.Must(cmd.Flags().GetString("id"))
		if id == "" && len(args) == 1 {
			id = args[0]
		}
		if id == "" {
			return nil, errors.New("an episode id is required with --script")
		}

		var s *script.Script
		if s, err = script.Find(name); err != nil {
			return nil, err
		}
		defer s.Close()
		episode, err = s.EpisodeSources(id)
	case len(args) == 1:
		episode, err = source.Load(ctx, args[0], os.Stdin)
	default:
		return nil, errors.New("nothing to play: pass a file, a URL, \"-\" or --script")
	}
	if err != nil {
		return nil, err
	}

	if title := lo.Must(cmd.Flags().GetString("title")); title != "" {
		episode.Title = title
	}
	if malID := lo.Must(cmd.Flags().GetInt("mal-id")); malID > 0 {
		episode.MalID = malID
	}
	if number := lo.Must(cmd.Flags().GetInt("episode")); number > 0 {
		episode.Episode = number
	}

	return episode, nil
}

// applySkipTimes fills the missing intro/outro markers from AniSkip.
func applySkipTimes(ctx context.Context, episode *source.EpisodeSources) {
	if !viper.GetBool(key.Aniskip) || (episode.Intro != nil && episode.Outro != nil) {
		return
	}

	times, err := aniskip.GetSkipTimes(ctx, episode.MalID, episode.Episode)
	if err != nil || times == nil {
		return
	}

	if intro, ok := times.Intro().Get(); ok && episode.Intro == nil {
		episode.Intro = &intro
	}
	if outro, ok := times.Outro().Get(); ok && episode.Outro == nil {
		episode.Outro = &outro
	}
}

// chooseServer returns the index of the server to play.
// requested is 1-based, zero prompts among the servers not in exclude.
func chooseServer(episode *source.EpisodeSources, requested int, exclude map[int]bool) (int, error) {
	if requested > 0 {
		if requested > len(episode.Sources) {
			return 0, fmt.Errorf("server %d out of range [1, %d]", requested, len(episode.Sources))
		}
		return requested - 1, nil
	}

	servers := episode.Servers()
	candidates := lo.Filter(lo.Range(len(servers)), func(i int, _ int) bool {
		return !exclude[i]
	})

	switch {
	case len(candidates) == 0:
		return 0, source.ErrNoSources
	case len(candidates) == 1 || !isInteractive():
		return candidates[0], nil
	}

	var choice int
	err := survey.AskOne(&survey.Select{
		Message: "Choose a server",
		Options: lo.Map(candidates, func(i int, _ int) string {
			return servers[i]
		}),
	}, &choice)
	if err != nil {
		return 0, err
	}

	return candidates[choice], nil
}

// newBackend creates the media element and the controller options it needs.
// The headless element gets the adaptive client and a real-time playhead bound to ctx.
func newBackend(ctx context.Context, name string, recorder io.Writer) (player.Backend, []playback.Option, error) {
	if name != player.HeadlessName {
		backend, err := player.New(name)
		return backend, nil, err
	}

	var opts []media.Option
	if recorder != nil {
		opts = append(opts, media.WithRecorder(recorder))
	}

	element := media.New(opts...)
	go element.Run(ctx, headlessTick)

	return element, []playback.Option{playback.WithEngine(hls.Factory)}, nil
}

// playServer plays one server until the user quits or playback ends.
func playServer(ctx context.Context, episode *source.EpisodeSources, index int, opts playOptions) (playback.Snapshot, error) {
	src, err := episode.Playback(index, viper.GetString(key.PlayerSubtitleLang))
	if err != nil {
		return playback.Snapshot{}, err
	}

	historyKey := history.Key(src.Title, src.URL)
	if opts.resume {
		if position, ok := history.Resume(historyKey); ok {
			src.StartAt = position
		}
	}

	backend, backendOpts, err := newBackend(ctx, opts.player, nil)
	if err != nil {
		return playback.Snapshot{}, err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warnf("close player: %v", err)
		}
	}()

	if mpv, ok := backend.(*player.MPV); ok {
		mpv.SetTitle(src.Title)
	}

	controller := playback.NewController(
		backend,
		config.Resolver(),
		append(backendOpts, playback.WithConfig(config.PlaybackConfig()))...,
	)

	session, err := controller.Load(src)
	if err != nil {
		return controller.Stop().OrElse(session.Snapshot()), err
	}

	log.WithFields(log.Fields{
		"session": session.ID(),
		"server":  index + 1,
		"player":  opts.player,
	}).Info("playing")

	final, err := tui.Run(session, &tui.Options{
		Server:          episode.Servers()[index],
		ControlsTimeout: time.Duration(viper.GetInt(key.PlayerControlsTimeout)) * time.Millisecond,
	})
	last := controller.Stop().OrElse(final)

	if opts.history && last.Duration > 0 {
		if err := history.Save(history.Entry{
			Key:      historyKey,
			Title:    src.Title,
			URL:      src.URL,
			Position: last.CurrentTime,
			Duration: last.Duration,
		}); err != nil {
			log.Warnf("save history: %v", err)
		}
	}

	if last.State == playback.Ended {
		fmt.Printf("%s %s\n", icon.Get(icon.Success), style.Faint("Finished "+lo.Ternary(src.Title != "", src.Title, "playback")))
	}

	return last, err
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
