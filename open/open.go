// Package open hands paths and URLs to the desktop's default handler.
package open

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/anisan-cli/anistream/constant"
)

// launchers maps a GOOS to the argv prefix opening its last argument.
var launchers = map[string]func() []string{
	constant.Linux:   func() []string { return []string{"xdg-open"} },
	constant.Darwin:  func() []string { return []string{"open"} },
	constant.Android: func() []string { return []string{"termux-open"} },
	constant.Windows: func() []string {
		return []string{filepath.Join(os.Getenv("SYSTEMROOT"), "System32", "rundll32.exe"), "url.dll,FileProtocolHandler"}
	},
}

// Start launches the handler for input and returns without waiting for it.
func Start(input string) error {
	cmd, ok := command(runtime.GOOS, input)
	if !ok {
		return fmt.Errorf("opening files is not supported on %s", runtime.GOOS)
	}
	return cmd.Start()
}

func command(goos, input string) (*exec.Cmd, bool) {
	launcher, ok := launchers[goos]
	if !ok {
		return nil, false
	}
	argv := append(launcher(), input)
	return exec.Command(argv[0], argv[1:]...), true
}
