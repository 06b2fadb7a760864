package cmd

import (
	"os"
	"path/filepath"

	"github.com/adamancini/hotswap/internal/failure"
)

// resolveBaseDir returns dir made absolute, or the directory of the running
// executable when dir is empty.
func resolveBaseDir(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// resolveAgainst interprets a relative p against base.
func resolveAgainst(base, p string) string {
	if p == "" {
		return base
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// exitError carries the failure kind of a run to main.
type exitError struct {
	kind failure.Kind
	err  error
}

func (e *exitError) Error() string {
	return e.kind.String() + ": " + e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }
