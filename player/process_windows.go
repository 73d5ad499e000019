//go:build windows

package player

import (
	"os/exec"
	"syscall"
	"time"
)

const createNoWindow = 0x08000000

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNoWindow}
}

// terminate kills the process. Windows has no polite signal for console-less children.
func terminate(cmd *exec.Cmd, exited <-chan struct{}, _ time.Duration) {
	if cmd == nil || cmd.Process == nil {
		return
	}

	select {
	case <-exited:
	default:
		_ = cmd.Process.Kill()
	}
}
