package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/config"
	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/where"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func configFilePath() string {
	return filepath.Join(where.Config(), constant.App+".toml")
}

// lookupField returns the registered field or an error suggesting the closest key.
func lookupField(k string) (config.Field, error) {
	if field, ok := config.Default[k]; ok {
		return field, nil
	}

	closest := lo.MinBy(lo.Keys(config.Default), func(a string, b string) bool {
		return levenshtein.Distance(k, a) < levenshtein.Distance(k, b)
	})
	return config.Field{}, fmt.Errorf(
		"unknown key %s, did you mean %s?",
		style.Fg(color.Red)(k),
		style.Fg(color.Yellow)(closest),
	)
}

// keyArg takes the key from the first argument or from --key.
func keyArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if k, _ := cmd.Flags().GetString("key"); k != "" {
		return k, nil
	}
	return "", errors.New("key is required as an argument or --key flag")
}

// parseValue converts the raw arguments to the type of the field's default.
func parseValue(field config.Field, raw []string) (any, error) {
	if len(raw) == 0 {
		return nil, errors.New("value is required as an argument or --value flag")
	}

	switch field.Value.(type) {
	case int:
		n, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, fmt.Errorf("invalid integer value: %s", raw[0])
		}
		return n, nil
	case bool:
		b, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fmt.Errorf("invalid boolean value: %s", raw[0])
		}
		return b, nil
	case []string:
		return raw, nil
	default:
		return raw[0], nil
	}
}

// writeConfig persists viper's state, creating the file on first use.
func writeConfig() error {
	err := viper.WriteConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return viper.SafeWriteConfig()
	}
	return err
}

func completionConfigKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Keys(config.Default), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Various config commands",
}

func init() {
	configCmd.AddCommand(configInfoCmd)
	configInfoCmd.Flags().StringSliceP("key", "k", []string{}, "Keys to describe")
	configInfoCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	lo.Must0(configInfoCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))

	configInfoCmd.SetOut(os.Stdout)
}

var configInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the config fields, their defaults and environment variables",
	Run: func(cmd *cobra.Command, args []string) {
		fields := lo.Values(config.Default)

		if keys := lo.Must(cmd.Flags().GetStringSlice("key")); len(keys) > 0 {
			fields = make([]config.Field, 0, len(keys))
			for _, k := range keys {
				field, err := lookupField(k)
				handleErr(err)
				fields = append(fields, field)
			}
		}

		sort.Slice(fields, func(i, j int) bool {
			return fields[i].Key < fields[j].Key
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(fields))
			return
		}

		for i, field := range fields {
			if i > 0 {
				cmd.Println()
			}
			cmd.Println(field.Pretty())
		}
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configSetCmd.Flags().StringP("key", "k", "", "Key to set")
	configSetCmd.Flags().StringSliceP("value", "v", []string{}, "Value to set")
	lo.Must0(configSetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))
}

var configSetCmd = &cobra.Command{
	Use:               "set [key] [value...]",
	Short:             "Set a config value",
	Example:           "  anistream config set player.default headless\n  anistream config set proxy.allowed_origins https://a.example https://b.example",
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		k, err := keyArg(cmd, args)
		handleErr(err)

		field, err := lookupField(k)
		handleErr(err)

		raw := lo.Must(cmd.Flags().GetStringSlice("value"))
		if len(args) > 1 {
			raw = args[1:]
		}

		v, err := parseValue(field, raw)
		handleErr(err)
		handleErr(config.Validate(k, v))

		viper.Set(k, v)
		handleErr(writeConfig())

		fmt.Printf(
			"%s set %s to %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(k),
			style.Fg(color.Yellow)(fmt.Sprint(v)),
		)
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configGetCmd.Flags().StringP("key", "k", "", "Key to get")
	lo.Must0(configGetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))
}

var configGetCmd = &cobra.Command{
	Use:               "get [key]",
	Short:             "Print a config value",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		k, err := keyArg(cmd, args)
		handleErr(err)

		_, err = lookupField(k)
		handleErr(err)

		fmt.Println(viper.Get(k))
	},
}

func init() {
	configCmd.AddCommand(configWriteCmd)
	configWriteCmd.Flags().BoolP("force", "f", false, "Overwrite the existing config file")
}

var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the current config to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configFilePath()

		if lo.Must(cmd.Flags().GetBool("force")) {
			if err := filesystem.API().Remove(path); err != nil && !os.IsNotExist(err) {
				handleErr(err)
			}
		}

		handleErr(viper.SafeWriteConfig())
		fmt.Printf("%s wrote config to %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), path)
	},
}

func init() {
	configCmd.AddCommand(configDeleteCmd)
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Delete the config file",
	Aliases: []string{"remove"},
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(filesystem.API().Remove(configFilePath()))
		fmt.Printf("%s deleted config\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)

	configResetCmd.Flags().StringP("key", "k", "", "Key to reset")
	configResetCmd.Flags().BoolP("all", "a", false, "Reset every key")
	configResetCmd.MarkFlagsMutuallyExclusive("key", "all")
	configResetCmd.MarkFlagsOneRequired("key", "all")
	lo.Must0(configResetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset config values to their defaults",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("all")) {
			for k, field := range config.Default {
				viper.Set(k, field.Value)
			}
			handleErr(writeConfig())
			fmt.Printf("%s reset all config values\n", style.Fg(color.Green)(icon.Get(icon.Success)))
			return
		}

		k := lo.Must(cmd.Flags().GetString("key"))
		field, err := lookupField(k)
		handleErr(err)

		viper.Set(k, field.Value)
		handleErr(writeConfig())

		fmt.Printf(
			"%s reset %s to %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(k),
			style.Fg(color.Yellow)(fmt.Sprint(field.Value)),
		)
	},
}
