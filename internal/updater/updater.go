package updater

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/hotswap/internal/apply"
	"github.com/adamancini/hotswap/internal/checksum"
	"github.com/adamancini/hotswap/internal/failure"
	"github.com/adamancini/hotswap/internal/fetch"
	"github.com/adamancini/hotswap/internal/launch"
	"github.com/adamancini/hotswap/internal/progress"
	"github.com/adamancini/hotswap/internal/reaper"
	"github.com/adamancini/hotswap/internal/templates"
	"github.com/adamancini/hotswap/internal/types"
)

// Acquirer downloads a URL to a local file.
type Acquirer interface {
	Acquire(ctx context.Context, url, dest string) (fetch.Result, error)
}

// Terminator stops every process with the given name.
type Terminator interface {
	Terminate(ctx context.Context, name string) (reaper.Result, error)
}

// Applier writes a payload into a root directory.
type Applier interface {
	Apply(archivePath, root string, mode types.UpdateMode) (apply.Result, error)
}

// VerifyFunc compares a file with an expected hash.
type VerifyFunc func(path, expected string) (bool, error)

// LaunchFunc starts the follow-up program and returns its PID.
type LaunchFunc func(file, args, dir string) (int, error)

// Options wires the pipeline stages. Nil stages fall back to the real
// implementations where one can be built without further input.
type Options struct {
	Acquirer   Acquirer
	Verify     VerifyFunc
	Terminator Terminator
	Applier    Applier
	Launch     LaunchFunc
	// TempPath picks the download destination for a URL.
	TempPath func(url string) string
	// Progress receives pipeline events. Nil discards them.
	Progress progress.Sink
	Text     templates.Set
}

// ErrAlreadyRan is returned when Run is called a second time.
var ErrAlreadyRan = errors.New("update pipeline already ran")

// Result is what Start delivers.
type Result struct {
	Report *Report
	Err    error
}

// Orchestrator runs one update. It is single use.
type Orchestrator struct {
	req  Request
	opts Options
	sink progress.Sink

	mu      sync.Mutex
	state   types.State
	visited []types.State

	ran      atomic.Bool
	failOnce sync.Once
	firstErr error
}

// New creates an orchestrator for req. The request is copied.
func New(req Request, opts Options) *Orchestrator {
	req.Mode = req.Mode.Default()
	if opts.Verify == nil {
		opts.Verify = checksum.Verify
	}
	if opts.Terminator == nil {
		opts.Terminator = reaper.New(reaper.DefaultTimeout)
	}
	if opts.Applier == nil {
		opts.Applier = apply.New(apply.Options{
			Progress:       opts.Progress,
			ExtractingText: opts.Text.Get(templates.Extracting),
		})
	}
	if opts.Launch == nil {
		opts.Launch = launch.Start
	}
	if opts.TempPath == nil {
		opts.TempPath = fetch.TempPath
	}
	return &Orchestrator{
		req:   req,
		opts:  opts,
		sink:  progress.OrDiscard(opts.Progress),
		state: types.StateIdle,
	}
}

// State returns the current pipeline state. Safe for concurrent use.
func (o *Orchestrator) State() types.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start runs the pipeline on a worker goroutine. The returned channel
// yields exactly one Result and is then closed.
func (o *Orchestrator) Start(ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	if !o.ran.CompareAndSwap(false, true) {
		out <- Result{Err: failure.Wrap(failure.KindConfiguration, "run", ErrAlreadyRan)}
		close(out)
		return out
	}
	go func() {
		defer close(out)
		rep, err := o.run(ctx)
		out <- Result{Report: rep, Err: err}
	}()
	return out
}

// Run executes the pipeline and waits for it. The returned error is the
// first failure, and the report is always non-nil for the first call.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	res := <-o.Start(ctx)
	return res.Report, res.Err
}

func (o *Orchestrator) run(ctx context.Context) (*Report, error) {
	req := o.req
	rep := &Report{
		App:     req.AppName,
		Mode:    req.Mode,
		Online:  req.Online(),
		Source:  req.SourceRef(),
		Root:    req.RootPath,
		Started: time.Now(),
	}
	o.mu.Lock()
	o.visited = append(o.visited, types.StateIdle)
	o.mu.Unlock()

	err := o.pipeline(ctx, rep)
	if err != nil {
		o.fail(err)
		o.transition(types.StateFailed)
		if rep.Online && rep.Payload != "" {
			log.Warnf("leaving downloaded payload at %s", rep.Payload)
		}
	}

	rep.Finished = time.Now()
	o.mu.Lock()
	rep.State = o.state
	rep.States = append([]types.State(nil), o.visited...)
	o.mu.Unlock()
	rep.setError(o.firstErr)

	if o.firstErr != nil {
		log.WithFields(log.Fields{
			"kind":  failure.KindOf(o.firstErr),
			"state": rep.States[len(rep.States)-2],
		}).Errorf("update failed: %v", o.firstErr)
	}
	return rep, o.firstErr
}

func (o *Orchestrator) pipeline(ctx context.Context, rep *Report) error {
	req := o.req
	if err := req.Validate(); err != nil {
		return err
	}

	payload := req.Source.LocalFile
	if req.Online() {
		payload = o.opts.TempPath(req.Source.URL)
		rep.Payload = payload

		o.transition(types.StateAcquiring)
		o.sink.Emit(progress.Describe(templates.Render(o.opts.Text.Get(templates.Downloading), templates.Vars{
			SrcDownloadURL:       req.Source.URL,
			SrcDownloadFile:      fetch.FileName(req.Source.URL),
			SrcDownloadLocalFile: payload,
		})))

		acq := o.opts.Acquirer
		if acq == nil {
			a, err := fetch.New(fetch.Options{Proxy: req.Source.Proxy, Progress: o.opts.Progress})
			if err != nil {
				return err
			}
			acq = a
		}
		res, err := acq.Acquire(ctx, req.Source.URL, payload)
		rep.BytesDownloaded = res.Bytes
		if err != nil {
			return failure.Wrap(failure.KindNetwork, "acquire", err)
		}

		if req.Source.Hash != "" {
			o.transition(types.StateVerifying)
			o.sink.Emit(progress.Describe("Verifying downloaded file..."))
			ok, err := o.opts.Verify(payload, req.Source.Hash)
			if err != nil {
				return failure.Wrap(failure.KindIntegrity, "verify", err)
			}
			if !ok {
				return failure.New(failure.KindIntegrity, "verify", "downloaded file does not match the expected hash")
			}
		}
	} else {
		rep.Payload = payload
		if req.Source.Hash != "" {
			log.Warn("expected hash is only checked for downloaded payloads; ignoring it for the local file")
		}
	}

	if info, err := os.Stat(payload); err != nil {
		return failure.Wrap(failure.KindArchive, "open payload", err)
	} else if info.IsDir() {
		return failure.Errorf(failure.KindArchive, "open payload", "%s is a directory", payload)
	}

	o.transition(types.StateTerminating)
	o.sink.Emit(progress.Describe("Closing " + displayName(req) + "..."))
	killed, err := o.opts.Terminator.Terminate(ctx, req.ProcessName)
	rep.Killed = killed.Killed
	if err != nil {
		return failure.Wrap(failure.KindTerminationTimeout, "terminate", err)
	}

	o.transition(types.StateApplying)
	o.sink.Emit(progress.Describe("Preparing update files..."))
	applied, err := o.opts.Applier.Apply(payload, req.RootPath, req.Mode)
	rep.Entries, rep.Files, rep.Purged = applied.Entries, applied.Files, applied.Purged
	if err != nil {
		return failure.Wrap(failure.KindFilesystem, "apply", err)
	}

	o.transition(types.StateRelaunching)
	if req.LaunchFile != "" {
		o.sink.Emit(progress.Describe("Starting " + filepath.Base(req.LaunchFile) + "..."))
		pid, err := o.opts.Launch(req.LaunchFile, req.LaunchArgs, req.LaunchDir)
		if err != nil {
			msg := templates.Render(o.opts.Text.Get(templates.LaunchError), templates.Vars{ExceptionMessage: err.Error()})
			return failure.Wrap(failure.KindLaunch, "relaunch", &launchError{msg: msg, err: err})
		}
		rep.LaunchedPID = pid
	} else {
		log.Debug("no launch file configured, skipping relaunch")
	}

	o.transition(types.StateDone)
	o.sink.Emit(progress.Percentage(100, "Update complete"))
	if req.Online() {
		if err := os.Remove(payload); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warnf("remove downloaded payload %s: %v", payload, err)
		}
	}
	return nil
}

// transition moves to next and records it. Terminal states are final.
func (o *Orchestrator) transition(next types.State) {
	o.mu.Lock()
	prev := o.state
	if prev.IsTerminal() {
		o.mu.Unlock()
		return
	}
	o.state = next
	o.visited = append(o.visited, next)
	o.mu.Unlock()

	log.WithFields(log.Fields{"from": prev, "to": next}).Info("update state changed")
}

// fail latches the first error of the run.
func (o *Orchestrator) fail(err error) {
	o.failOnce.Do(func() {
		o.firstErr = err
	})
}

func displayName(req Request) string {
	switch {
	case req.AppName != "":
		return req.AppName
	case req.ProcessName != "":
		return req.ProcessName
	default:
		return "application"
	}
}

// launchError carries the user-facing launch text while keeping the cause
// reachable through errors.Is and errors.As.
type launchError struct {
	msg string
	err error
}

func (e *launchError) Error() string { return e.msg }

func (e *launchError) Unwrap() error { return e.err }
