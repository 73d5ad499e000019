//go:build !windows

package player

import (
	"os/exec"
	"syscall"
	"time"
)

// detach starts the child in its own process group so helpers spawned by mpv
// (yt-dlp, ffmpeg) are reached by terminate.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate asks the process group to stop and kills it when it is still
// alive after grace.
func terminate(cmd *exec.Cmd, exited <-chan struct{}, grace time.Duration) {
	if cmd == nil || cmd.Process == nil {
		return
	}

	group := -cmd.Process.Pid
	_ = syscall.Kill(group, syscall.SIGTERM)

	select {
	case <-exited:
	case <-time.After(grace):
		_ = syscall.Kill(group, syscall.SIGKILL)
		_ = cmd.Process.Kill()
	}
}
