// Package config registers the settings, loads them through viper and
// translates them into the playback and resolver configuration.
package config

import (
	"errors"
	"strings"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer maps "proxy.base_url" to "PROXY_BASE_URL".
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup registers the defaults and environment bindings, then reads
// anistream.toml from the config directory when it exists.
func Setup() error {
	viper.SetConfigName(constant.App)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.App)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return err
	}

	return validateLoaded()
}
