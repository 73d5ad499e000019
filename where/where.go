// Package where resolves the directories anistream keeps its files in.
// Every directory returned is created on first use.
package where

import (
	"os"
	"path/filepath"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/samber/lo"
)

// Environment variables overriding the base directories.
const (
	EnvConfigPath = "ANISTREAM_CONFIG_PATH"
	EnvCachePath  = "ANISTREAM_CACHE_PATH"
)

// Overrides lists the path environment variables, for the env command.
var Overrides = []string{EnvConfigPath, EnvCachePath}

func dir(elem ...string) string {
	path := filepath.Join(elem...)
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// base returns $env when set, otherwise the app directory under system().
func base(env string, system func() (string, error)) string {
	if custom, ok := os.LookupEnv(env); ok && custom != "" {
		return dir(custom)
	}
	root, err := system()
	if err != nil {
		root = "."
	}
	return dir(root, constant.App)
}

// Config holds the config file, scripts, history, logs and recordings.
func Config() string {
	return base(EnvConfigPath, os.UserConfigDir)
}

// Cache holds data that can be thrown away.
func Cache() string {
	return base(EnvCachePath, os.UserCacheDir)
}

func Logs() string {
	return dir(Config(), "logs")
}

func Sources() string {
	return dir(Config(), "sources")
}

func Recordings() string {
	return dir(Config(), "recordings")
}

// Skips caches intro/outro markers fetched from AniSkip.
func Skips() string {
	return dir(Cache(), "skips")
}

// Temp is emptied every time the CLI starts.
func Temp() string {
	return dir(os.TempDir(), constant.App)
}

// History is the watch history file.
func History() string {
	return filepath.Join(Config(), "history.json")
}

// Version caches the latest release lookup.
func Version() string {
	return filepath.Join(Cache(), "version.json")
}
