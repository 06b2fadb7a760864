// Package launch starts the follow-up program once an update is in place.
package launch

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"mvdan.cc/sh/v3/shell"

	"github.com/adamancini/hotswap/internal/failure"
)

// SplitArgs splits an argument string with POSIX shell quoting rules.
// Environment references are expanded from the current process.
func SplitArgs(args string) ([]string, error) {
	if strings.TrimSpace(args) == "" {
		return nil, nil
	}
	return shell.Fields(args, os.Getenv)
}

// Resolve returns file as an absolute path, interpreting a relative file
// against dir.
func Resolve(file, dir string) string {
	if filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	return filepath.Join(dir, file)
}

// Start launches file with args, working in dir, detached from the updater
// so it outlives it. It returns the new process ID. Any failure is a
// LaunchError.
func Start(file, args, dir string) (int, error) {
	if strings.TrimSpace(file) == "" {
		return 0, failure.New(failure.KindLaunch, "launch", "no launch file configured")
	}

	argv, err := SplitArgs(args)
	if err != nil {
		return 0, failure.Wrap(failure.KindLaunch, "parse launch args", err)
	}

	path := Resolve(file, dir)
	cmd := exec.Command(path, argv...)
	cmd.Dir = dir
	setDetached(cmd)

	if err := cmd.Start(); err != nil {
		return 0, failure.Wrap(failure.KindLaunch, "start "+path, err)
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		log.Warnf("release launched process %d: %v", pid, err)
	}
	log.Infof("launched %s (pid %d)", path, pid)
	return pid, nil
}
