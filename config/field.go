package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/style"
	"github.com/spf13/viper"
)

// Field is a registered setting with its factory value.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Env is the environment variable overriding the field, e.g. ANISTREAM_PROXY_BASE_URL.
func (f *Field) Env() string {
	return strings.ToUpper(constant.App + "_" + EnvKeyReplacer.Replace(f.Key))
}

// Type names the kind of value the field holds.
func (f *Field) Type() string {
	return fmt.Sprintf("%T", f.Value)
}

func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Env         string `json:"env"`
		Type        string `json:"type"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
	}{
		Key:         f.Key,
		Env:         f.Env(),
		Type:        f.Type(),
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
	})
}

// Pretty renders the field for "config info".
func (f *Field) Pretty() string {
	label := func(s string) string {
		return style.Fg(color.Blue)(fmt.Sprintf("%-9s", s+":"))
	}

	return strings.Join([]string{
		style.Faint(f.Description),
		label("Key") + style.Fg(color.Purple)(f.Key),
		label("Env") + f.Env(),
		label("Value") + highlight(viper.Get(f.Key)),
		label("Default") + highlight(f.Value),
		label("Type") + f.Type(),
	}, "\n")
}

func highlight(v any) string {
	switch value := v.(type) {
	case bool:
		if value {
			return style.Fg(color.Green)(strconv.FormatBool(value))
		}
		return style.Fg(color.Red)(strconv.FormatBool(value))
	case string:
		return style.Fg(color.Yellow)(strconv.Quote(value))
	case []string:
		return style.Fg(color.Yellow)("[" + strings.Join(value, ", ") + "]")
	default:
		return fmt.Sprint(value)
	}
}
