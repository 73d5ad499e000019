package cmd

import (
	"os"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/config"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Only show variables that are set")
	envCmd.Flags().BoolP("unset-only", "u", false, "Only show variables that are not set")
	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
	envCmd.SetOut(os.Stdout)
}

// envNames lists every variable read by anistream, sorted.
func envNames() []string {
	names := lo.Map(lo.Values(config.Default), func(f config.Field, _ int) string {
		return f.Env()
	})
	names = append(names, where.Overrides...)
	slices.Sort(names)
	return names
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show the environment variables anistream reads",
	Long:  "Show the environment variables anistream reads and their current values.\nThey take precedence over the config file.",
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))
		name := style.New().Bold(true).Foreground(color.Purple).Render

		for _, env := range envNames() {
			value, present := os.LookupEnv(env)
			if present && unsetOnly || !present && setOnly {
				continue
			}

			rendered := style.Fg(color.Red)("unset")
			if present {
				rendered = style.Fg(color.Green)(value)
			}
			cmd.Println(name(env) + "=" + rendered)
		}
	},
}
