package launch

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// setDetached starts the program without a console and in its own process
// group.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
	}
}
