// Package reaper stops the target application before its files are replaced.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shirou/gopsutil/v3/process"
	log "github.com/sirupsen/logrus"

	"github.com/adamancini/hotswap/internal/failure"
)

// DefaultTimeout is how long Terminate waits for killed processes to exit.
const DefaultTimeout = 10 * time.Second

// Proc is the part of a running process the reaper needs.
type Proc interface {
	PID() int32
	Name() (string, error)
	Kill() error
	// Zombie reports a process that has exited but not been reaped.
	Zombie() bool
}

// Lister enumerates running processes.
type Lister func(ctx context.Context) ([]Proc, error)

// Reaper kills every process with a given name and waits for them to go.
type Reaper struct {
	// Timeout bounds the wait after killing. Zero means DefaultTimeout.
	Timeout time.Duration
	// InitialInterval is the first poll delay.
	InitialInterval time.Duration

	list    Lister
	selfPID int32
}

// New returns a Reaper backed by the operating system's process table.
func New(timeout time.Duration) *Reaper {
	return &Reaper{
		Timeout:         timeout,
		InitialInterval: 50 * time.Millisecond,
		list:            systemProcesses,
		selfPID:         int32(os.Getpid()),
	}
}

// NewWithLister is New with a custom process source.
func NewWithLister(timeout time.Duration, list Lister) *Reaper {
	r := New(timeout)
	r.list = list
	return r
}

// Result lists the PIDs that were signalled.
type Result struct {
	Killed []int32
}

// Terminate kills every process whose name is name, ignoring a trailing
// ".exe" on either side, and never the calling process. It then polls until
// no such process remains. Survivors past the timeout produce a
// TerminationTimeout error. No match is not an error.
func (r *Reaper) Terminate(ctx context.Context, name string) (Result, error) {
	var res Result
	want := trimExe(strings.TrimSpace(name))
	if want == "" {
		log.Debug("no target process configured, skipping termination")
		return res, nil
	}

	procs, err := r.matching(ctx, want)
	if err != nil {
		return res, failure.Wrap(failure.KindTerminationTimeout, "list processes", err)
	}
	if len(procs) == 0 {
		log.Debugf("no running process named %q", want)
		return res, nil
	}

	for _, p := range procs {
		log.Infof("killing process %q (pid %d)", want, p.PID())
		if err := p.Kill(); err != nil {
			log.Warnf("kill pid %d: %v", p.PID(), err)
		}
		res.Killed = append(res.Killed, p.PID())
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var survivors []int32
	poll := func() error {
		left, err := r.matching(ctx, want)
		if err != nil {
			return err
		}
		survivors = survivors[:0]
		for _, p := range left {
			survivors = append(survivors, p.PID())
			if err := p.Kill(); err != nil {
				log.Debugf("re-kill pid %d: %v", p.PID(), err)
			}
		}
		if len(survivors) > 0 {
			return fmt.Errorf("%d process(es) still running", len(survivors))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.InitialInterval
	b.MaxInterval = time.Second
	b.MaxElapsedTime = timeout

	if err := backoff.Retry(poll, backoff.WithContext(b, ctx)); err != nil {
		sort.Slice(survivors, func(i, j int) bool { return survivors[i] < survivors[j] })
		return res, failure.Errorf(failure.KindTerminationTimeout, "terminate",
			"process %q still running after %s (pids %v): %w", want, timeout, survivors, err)
	}

	log.Infof("terminated %d process(es) named %q", len(res.Killed), want)
	return res, nil
}

func (r *Reaper) matching(ctx context.Context, want string) ([]Proc, error) {
	all, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	var out []Proc
	for _, p := range all {
		if p.PID() == r.selfPID || p.Zombie() {
			continue
		}
		n, err := p.Name()
		if err != nil {
			// Processes vanish between listing and inspection.
			continue
		}
		if trimExe(n) == want {
			out = append(out, p)
		}
	}
	return out, nil
}

func trimExe(name string) string {
	if len(name) > 4 && strings.EqualFold(name[len(name)-4:], ".exe") {
		return name[:len(name)-4]
	}
	return name
}

type osProc struct {
	p *process.Process
}

func (o osProc) PID() int32 { return o.p.Pid }

func (o osProc) Name() (string, error) { return o.p.Name() }

func (o osProc) Zombie() bool {
	status, err := o.p.Status()
	if err != nil {
		return false
	}
	for _, s := range status {
		if s == process.Zombie {
			return true
		}
	}
	return false
}

func (o osProc) Kill() error {
	err := o.p.Kill()
	if err == nil {
		return nil
	}
	if running, rerr := o.p.IsRunning(); rerr == nil && !running {
		return nil
	}
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return nil
	}
	return err
}

func systemProcesses(ctx context.Context) ([]Proc, error) {
	ps, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}
	out := make([]Proc, 0, len(ps))
	for _, p := range ps {
		out = append(out, osProc{p: p})
	}
	return out, nil
}
