//go:build !windows

package launch

import (
	"os/exec"
	"syscall"
)

// setDetached starts the program in its own session so it survives the
// updater exiting.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
