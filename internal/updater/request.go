// Package updater sequences an update: acquire the payload, verify it, stop
// the target application, apply the payload and relaunch.
package updater

import (
	"path/filepath"
	"strings"

	"github.com/adamancini/hotswap/internal/checksum"
	"github.com/adamancini/hotswap/internal/failure"
	"github.com/adamancini/hotswap/internal/types"
)

// Source says where the payload comes from. A non-empty URL selects online
// mode; otherwise LocalFile is used as is.
type Source struct {
	URL       string
	Proxy     string
	Hash      string
	LocalFile string
}

// Request is the immutable input of one run.
type Request struct {
	AppName     string
	ProcessName string
	// RootPath is the absolute directory the payload is applied to.
	RootPath string
	// LaunchFile is started after a successful apply. Empty skips relaunch.
	LaunchFile string
	LaunchArgs string
	// LaunchDir is the working directory for LaunchFile and the base a
	// relative LaunchFile is resolved against.
	LaunchDir string
	Source    Source
	Mode      types.UpdateMode
}

// Online reports whether the payload has to be downloaded.
func (r Request) Online() bool {
	return strings.TrimSpace(r.Source.URL) != ""
}

// SourceRef returns the URL in online mode and the local file otherwise.
func (r Request) SourceRef() string {
	if r.Online() {
		return r.Source.URL
	}
	return r.Source.LocalFile
}

// Validate reports problems that make the request unusable. All of them are
// ConfigurationErrors.
func (r Request) Validate() error {
	if !r.Online() && strings.TrimSpace(r.Source.LocalFile) == "" {
		return failure.New(failure.KindConfiguration, "request", "no update source: set a download URL or a local file")
	}
	if strings.TrimSpace(r.RootPath) == "" {
		return failure.New(failure.KindConfiguration, "request", "target root path is required")
	}
	if !filepath.IsAbs(r.RootPath) {
		return failure.Errorf(failure.KindConfiguration, "request", "target root path %q is not absolute", r.RootPath)
	}
	if err := r.Mode.Default().Validate(); err != nil {
		return failure.Wrap(failure.KindConfiguration, "request", err)
	}
	if r.Online() && strings.TrimSpace(r.Source.Hash) != "" {
		if _, err := checksum.Parse(r.Source.Hash); err != nil {
			return failure.Wrap(failure.KindConfiguration, "request", err)
		}
	}
	return nil
}
