// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// App is the canonical application identifier used for filesystem paths and CLI branding.
	App = "anistream"

	// Version is the current application semantic version string.
	Version = "0.1.0"

	// UserAgent is sent with every upstream request unless the episode headers override it.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// runtime.GOOS values the launcher distinguishes.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
	Android = "android"
)

// Build metadata, overridden through -ldflags at release time.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

// AsciiArtLogo is printed at the top of the root help.
const AsciiArtLogo = `
                  _     _
   __ _ _ __ (_)___| |_ _ __ ___  __ _ _ __ ___
  / _' | '_ \| / __| __| '__/ _ \/ _' | '_ ' _ \
 | (_| | | | | \__ \ |_| | |  __/ (_| | | | | | |
  \__,_|_| |_|_|___/\__|_|  \___|\__,_|_| |_| |_|`
