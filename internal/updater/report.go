package updater

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/adamancini/hotswap/internal/failure"
	"github.com/adamancini/hotswap/internal/types"
)

// Report is the outcome of a run.
type Report struct {
	App             string           `json:"app" yaml:"app"`
	Mode            types.UpdateMode `json:"mode" yaml:"mode"`
	Online          bool             `json:"online" yaml:"online"`
	Source          string           `json:"source" yaml:"source"`
	Payload         string           `json:"payload,omitempty" yaml:"payload,omitempty"`
	Root            string           `json:"root" yaml:"root"`
	State           types.State      `json:"state" yaml:"state"`
	States          []types.State    `json:"states" yaml:"states"`
	BytesDownloaded int64            `json:"bytes_downloaded,omitempty" yaml:"bytes_downloaded,omitempty"`
	Entries         int              `json:"entries" yaml:"entries"`
	Files           int              `json:"files" yaml:"files"`
	Purged          int              `json:"purged,omitempty" yaml:"purged,omitempty"`
	Killed          []int32          `json:"killed,omitempty" yaml:"killed,omitempty"`
	LaunchedPID     int              `json:"launched_pid,omitempty" yaml:"launched_pid,omitempty"`
	Started         time.Time        `json:"started" yaml:"started"`
	Finished        time.Time        `json:"finished" yaml:"finished"`
	ErrorKind       string           `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error           string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Succeeded reports whether the run reached Done.
func (r *Report) Succeeded() bool {
	return r.State == types.StateDone
}

// Duration is the wall-clock time of the run.
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

func (r *Report) setError(err error) {
	if err == nil {
		return
	}
	r.ErrorKind = failure.KindOf(err).String()
	r.Error = err.Error()
}

// String renders the report for text output.
func (r *Report) String() string {
	var b strings.Builder

	name := r.App
	if name == "" {
		name = "application"
	}
	if r.Succeeded() {
		fmt.Fprintf(&b, "Updated %s in %s\n", name, r.Duration().Round(time.Millisecond))
	} else {
		fmt.Fprintf(&b, "Update of %s failed: %s\n", name, r.ErrorKind)
		fmt.Fprintf(&b, "  error:   %s\n", r.Error)
	}

	mode := "offline"
	if r.Online {
		mode = "online"
	}
	fmt.Fprintf(&b, "  source:  %s (%s)\n", r.Source, mode)
	fmt.Fprintf(&b, "  root:    %s (%s)\n", r.Root, r.Mode)
	if r.BytesDownloaded > 0 {
		fmt.Fprintf(&b, "  fetched: %s\n", humanize.IBytes(uint64(r.BytesDownloaded)))
	}
	if len(r.Killed) > 0 {
		fmt.Fprintf(&b, "  stopped: %d process(es)\n", len(r.Killed))
	}
	if r.Entries > 0 || r.Succeeded() {
		fmt.Fprintf(&b, "  applied: %d files, %d entries", r.Files, r.Entries)
		if r.Purged > 0 {
			fmt.Fprintf(&b, ", %d purged", r.Purged)
		}
		b.WriteString("\n")
	}
	if r.LaunchedPID > 0 {
		fmt.Fprintf(&b, "  started: pid %d\n", r.LaunchedPID)
	}

	states := make([]string, len(r.States))
	for i, s := range r.States {
		states[i] = s.String()
	}
	fmt.Fprintf(&b, "  states:  %s", strings.Join(states, " -> "))
	return b.String()
}
