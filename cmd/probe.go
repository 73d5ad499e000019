package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/config"
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/playback"
	"github.com/anisan-cli/anistream/player"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/util"
	"github.com/anisan-cli/anistream/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(probeCmd)

	addEpisodeFlags(probeCmd)
	probeCmd.Flags().Duration("timeout", 30*time.Second, "Give up when the stream is not ready after this long")
	probeCmd.Flags().DurationP("watch", "w", 0, "Keep playing for this long and report playback health")
	probeCmd.Flags().String("record", "", "Write the played fragments to this file. Bare names go to the recordings directory")
	probeCmd.Flags().BoolP("json", "j", false, "Print the report as JSON")
	probeCmd.SetOut(os.Stdout)
}

type probeReport struct {
	Title    string           `json:"title,omitempty"`
	Server   string           `json:"server"`
	URL      string           `json:"url"`
	HLS      bool             `json:"hls"`
	Duration float64          `json:"duration"`
	Levels   []playback.Level `json:"levels"`
	Level    string           `json:"level"`
	Watched  float64          `json:"watched,omitempty"`
	State    string           `json:"state"`
	Stats    *probeStats      `json:"stats,omitempty"`
}

type probeStats struct {
	StartupMillis int64 `json:"startup_ms"`
	Stalls        int   `json:"stalls"`
	Downgrades    int   `json:"downgrades"`
	LevelSwitches int   `json:"level_switches"`
	Fragments     int   `json:"fragments"`
	Bytes         int64 `json:"bytes"`
	Recoveries    int   `json:"recoveries"`
}

// probeCmd loads a source on the headless backend and reports its health.
var probeCmd = &cobra.Command{
	Use:   "probe [file|url|-]",
	Short: "Check that a source loads and report its quality ladder",
	Long: `Load a source on the headless backend, wait until it is ready and print its quality ladder.
With --watch the stream keeps playing and the report includes stalls, quality changes and startup time.`,
	Example: `  anistream probe episode.json --server 2 --watch 1m
  anistream probe episode.json --watch 5m --record episode.ts`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		episode, err := loadEpisode(ctx, cmd, args)
		handleErr(err)

		index, err := chooseServer(episode, lo.Must(cmd.Flags().GetInt("server")), nil)
		handleErr(err)

		src, err := episode.Playback(index, viper.GetString(key.PlayerSubtitleLang))
		handleErr(err)

		var recorder io.Writer
		if path := lo.Must(cmd.Flags().GetString("record")); path != "" {
			if filepath.Base(path) == path {
				path = filepath.Join(where.Recordings(), path)
			}
			file, err := filesystem.API().Create(path)
			handleErr(err)
			defer util.Ignore(file.Close)
			recorder = file
		}

		backend, backendOpts, err := newBackend(ctx, player.HeadlessName, recorder)
		handleErr(err)
		defer util.Ignore(backend.Close)

		cfg := config.PlaybackConfig()
		cfg.Autoplay = true
		controller := playback.NewController(backend, config.Resolver(), append(backendOpts, playback.WithConfig(cfg))...)
		defer controller.Stop()

		session, err := controller.Load(src)
		handleErr(err)

		erase := util.PrintErasable(fmt.Sprintf("%s Loading %s...", icon.Get(icon.Progress), episode.Servers()[index]))
		readyCtx, cancel := context.WithTimeout(ctx, lo.Must(cmd.Flags().GetDuration("timeout")))
		ready, err := session.Await(readyCtx, func(s playback.Snapshot) bool {
			return s.State != playback.Idle && s.State != playback.Loading
		})
		cancel()
		erase()
		handleErr(err)
		if ready.State == playback.Error {
			handleErr(ready.Err)
		}

		final := ready
		watch := lo.Must(cmd.Flags().GetDuration("watch"))
		if watch > 0 {
			erase := util.PrintErasable(fmt.Sprintf("%s Watching for %s...", icon.Get(icon.Play), watch))
			watchCtx, cancel := context.WithTimeout(ctx, watch)
			final, err = session.Await(watchCtx, func(s playback.Snapshot) bool {
				return s.State == playback.Ended || s.State == playback.Error
			})
			cancel()
			erase()
			if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				handleErr(err)
			}
		}

		report := probeReport{
			Title:    src.Title,
			Server:   episode.Servers()[index],
			URL:      ready.SourceURL,
			HLS:      ready.IsHLS,
			Duration: final.Duration,
			Levels:   ready.Levels,
			Level:    final.LevelLabel(),
			State:    final.State.String(),
		}
		if watch > 0 {
			stats := session.Stats()
			report.Watched = final.CurrentTime
			report.Stats = &probeStats{
				StartupMillis: stats.StartupTime.Milliseconds(),
				Stalls:        stats.Stalls,
				Downgrades:    stats.Downgrades,
				LevelSwitches: stats.LevelSwitches,
				Fragments:     stats.Fragments,
				Bytes:         stats.Bytes,
				Recoveries:    stats.Recoveries,
			}
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(report))
		} else {
			printReport(cmd, report)
		}

		if final.State == playback.Error {
			handleErr(final.Err)
		}
	},
}

func printReport(cmd *cobra.Command, r probeReport) {
	label := func(s string) string {
		return style.Faint(fmt.Sprintf("%-14s", s))
	}

	title := lo.Ternary(r.Title != "", r.Title, r.Server)
	cmd.Printf("%s %s\n\n", style.Fg(color.Purple)("▇▇▇"), style.Bold(title))
	cmd.Println(label("Server"), r.Server)
	cmd.Println(label("HLS"), r.HLS)
	cmd.Println(label("Duration"), time.Duration(r.Duration*float64(time.Second)).Round(time.Second))
	cmd.Println(label("State"), r.State)
	cmd.Println(label("Level"), r.Level)

	if len(r.Levels) > 0 {
		cmd.Println()
		cmd.Println(style.Bold("Levels"))
		for _, l := range r.Levels {
			cmd.Printf("  %s %-8s %s\n", style.Faint(fmt.Sprintf("%2d", l.ID)), l.Label, style.Faint(fmt.Sprintf("%d kbps", l.Bandwidth/1000)))
		}
	}

	if s := r.Stats; s != nil {
		cmd.Println()
		cmd.Println(style.Bold("Playback"))
		cmd.Println(label("  Watched"), time.Duration(r.Watched*float64(time.Second)).Round(time.Second))
		cmd.Println(label("  Startup"), time.Duration(s.StartupMillis)*time.Millisecond)
		cmd.Println(label("  Stalls"), s.Stalls)
		cmd.Println(label("  Downgrades"), s.Downgrades)
		cmd.Println(label("  Switches"), s.LevelSwitches)
		cmd.Println(label("  Fragments"), util.Quantify(s.Fragments, "fragment", "fragments"), style.Faint(fmt.Sprintf("(%d bytes)", s.Bytes)))
		cmd.Println(label("  Recoveries"), s.Recoveries)
	}
}
