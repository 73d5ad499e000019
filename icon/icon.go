// Package icon renders the symbols used by the controls and command output.
//
// Each symbol has an emoji, nerd-font, plain ASCII, kaomoji and square rendering,
// selected by the icons.variant setting.
package icon

import (
	"github.com/anisan-cli/anistream/key"
	"github.com/spf13/viper"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants returns the accepted icons.variant values.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

func (d *iconDef) get(variant string) string {
	switch variant {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return ""
	}
}

// Get renders i in the configured variant. Without a variant icons are omitted.
func Get(i Icon) string {
	def, ok := icons[i]
	if !ok {
		return ""
	}
	return def.get(viper.GetString(key.IconsVariant))
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Lua Icon = iota
	Fail
	Success
	Progress
	Link
	Mark
	Play
	Pause
	Skip
	Subtitles
	Quality
	Volume
)

var icons = map[Icon]*iconDef{
	Lua: {
		emoji:   "🌙",
		nerd:    "",
		plain:   "Lua",
		kaomoji: "ʕ•ᴥ•ʔ",
		squares: "🟦",
	},
	Fail: {
		emoji:   "💀",
		nerd:    "",
		plain:   "X",
		kaomoji: "(╥﹏╥)",
		squares: "🟥",
	},
	Success: {
		emoji:   "🎉",
		nerd:    "",
		plain:   "OK",
		kaomoji: "(ᵔ◡ᵔ)",
		squares: "🟩",
	},
	Progress: {
		emoji:   "👾",
		nerd:    "",
		plain:   "...",
		kaomoji: "┌( >_<)┘",
		squares: "🟨",
	},
	Link: {
		emoji:   "🔗",
		nerd:    "",
		plain:   "->",
		kaomoji: "(・∀・)",
		squares: "🟫",
	},
	Mark: {
		emoji:   "✅",
		nerd:    "",
		plain:   "*",
		kaomoji: "(^_^)",
		squares: "🟩",
	},
	Play: {
		emoji:   "▶️",
		nerd:    "",
		plain:   ">",
		kaomoji: "(•̀ᴗ•́)و",
		squares: "🟩",
	},
	Pause: {
		emoji:   "⏸️",
		nerd:    "",
		plain:   "||",
		kaomoji: "(－_－) zzZ",
		squares: "🟨",
	},
	Skip: {
		emoji:   "⏭️",
		nerd:    "",
		plain:   ">>",
		kaomoji: "ε=ε=┌( >_<)┘",
		squares: "🟦",
	},
	Subtitles: {
		emoji:   "💬",
		nerd:    "",
		plain:   "CC",
		kaomoji: "(・ω・)ノ",
		squares: "⬜",
	},
	Quality: {
		emoji:   "📺",
		nerd:    "",
		plain:   "Q",
		kaomoji: "(⌐■_■)",
		squares: "🟪",
	},
	Volume: {
		emoji:   "🔊",
		nerd:    "",
		plain:   "Vol",
		kaomoji: "ヽ(°〇°)ﾉ",
		squares: "🟫",
	},
}
