// Package apply writes an update payload into the target root.
//
// Applying is not atomic. A failing entry stops the run and leaves whatever
// was already written (and, in delete-all mode, already purged) in place.
package apply

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/adamancini/hotswap/internal/archive"
	"github.com/adamancini/hotswap/internal/failure"
	"github.com/adamancini/hotswap/internal/progress"
	"github.com/adamancini/hotswap/internal/safepath"
	"github.com/adamancini/hotswap/internal/templates"
	"github.com/adamancini/hotswap/internal/types"
)

// Opener opens a payload archive.
type Opener func(path string) (archive.Archive, error)

// Options configures an Applier.
type Options struct {
	// Open defaults to archive.Open.
	Open Opener
	// SelfExe is the updater's executable path. Its stem protects the
	// updater's own files from the delete-all purge. Defaults to
	// os.Executable.
	SelfExe string
	// SelfPattern replaces the stem-based pattern. See ExcludePattern.
	SelfPattern string
	// Progress receives one event per entry.
	Progress progress.Sink
	// ExtractingText is the per-file headline template.
	ExtractingText string
}

// Result summarises an apply.
type Result struct {
	Entries int   `json:"entries" yaml:"entries"`
	Files   int   `json:"files" yaml:"files"`
	Dirs    int   `json:"dirs" yaml:"dirs"`
	Skipped int   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Bytes   int64 `json:"bytes" yaml:"bytes"`
	Purged  int   `json:"purged,omitempty" yaml:"purged,omitempty"`
}

// Applier extracts payloads into a root directory.
type Applier struct {
	open        Opener
	selfExe     string
	selfPattern string
	sink        progress.Sink
	text        string
}

// New creates an Applier.
func New(opts Options) *Applier {
	a := &Applier{
		open:        opts.Open,
		selfExe:     opts.SelfExe,
		selfPattern: opts.SelfPattern,
		sink:        progress.OrDiscard(opts.Progress),
		text:        opts.ExtractingText,
	}
	if a.open == nil {
		a.open = archive.Open
	}
	if a.selfExe == "" {
		if exe, err := os.Executable(); err == nil {
			a.selfExe = exe
		} else {
			log.Warnf("cannot determine own executable: %v", err)
		}
	}
	if a.text == "" {
		a.text = templates.Default(templates.Extracting)
	}
	return a
}

// Apply extracts archivePath into root.
//
// The archive is opened and its entry list read before anything under root
// is touched, so an unreadable payload never costs a purge. In delete-all
// mode the root is then purged. Each entry is resolved through safepath;
// file entries overwrite their destination, directory entries only advance
// the progress counter.
func (a *Applier) Apply(archivePath, root string, mode types.UpdateMode) (Result, error) {
	var res Result

	root, err := filepath.Abs(root)
	if err != nil {
		return res, failure.Wrap(failure.KindFilesystem, "resolve root", err)
	}

	arc, err := a.open(archivePath)
	if err != nil {
		return res, failure.Wrap(failure.KindArchive, "open archive", err)
	}
	defer func() {
		if cerr := arc.Close(); cerr != nil {
			log.Warnf("error closing archive %q: %v", archivePath, cerr)
		}
	}()

	entries, err := arc.Entries()
	if err != nil {
		return res, failure.Wrap(failure.KindArchive, "list entries", err)
	}
	total := int64(len(entries))
	log.Infof("applying %d entries from %s (%s) to %s", total, archivePath, arc.Format(), root)

	if mode.PurgesRoot() {
		exclude, err := ExcludePattern(a.selfExe, a.selfPattern, archivePath)
		if err != nil {
			return res, failure.Wrap(failure.KindConfiguration, "purge pattern", err)
		}
		pr, err := Purge(root, exclude)
		res.Purged = pr.Removed
		if err != nil {
			return res, failure.Wrap(failure.KindFilesystem, "purge root", err)
		}
		log.Infof("purged %d entries from %s, kept %d", pr.Removed, root, len(pr.Kept))
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return res, failure.Wrap(failure.KindFilesystem, "create root", err)
	}

	a.sink.Emit(progress.Percentage(0, "Completed 0%"))

	err = arc.Walk(func(e archive.Entry, r io.Reader) error {
		ev := progress.Event{}
		if !e.IsDir {
			ev.Description = templates.Render(a.text, templates.Vars{
				ArchiveFileName: archivePath,
				EntryFileName:   e.Name,
				EntryFileSize:   humanize.IBytes(uint64(e.Size)),
			})
		}

		if err := a.applyEntry(root, e, r, &res); err != nil {
			return err
		}

		res.Entries++
		pct := progress.Ratio(int64(res.Entries), total)
		ev.Percent = pct
		ev.Status = fmt.Sprintf("Completed %s%%", progress.FormatPercent(pct))
		a.sink.Emit(ev)
		return nil
	})
	if err != nil {
		return res, failure.Wrap(failure.KindFilesystem, "extract", err)
	}

	log.Infof("applied %d files (%s) and %d directories",
		res.Files, humanize.IBytes(uint64(res.Bytes)), res.Dirs)
	return res, nil
}

func (a *Applier) applyEntry(root string, e archive.Entry, r io.Reader, res *Result) error {
	if strings.TrimSpace(e.Name) == "" {
		res.Skipped++
		return nil
	}
	if e.IsDir {
		res.Dirs++
		return nil
	}

	dst := safepath.Resolve(root, e.Name)
	if dst.IsBase() {
		log.Warnf("skipping entry %q: resolves to the root itself", e.Name)
		res.Skipped++
		return nil
	}
	log.Debugf("extracting %q to %s", e.Name, dst)

	n, err := writeFile(dst.String(), r, e.Mode)
	if err != nil {
		return err
	}
	res.Files++
	res.Bytes += n
	return nil
}

func writeFile(path string, r io.Reader, mode fs.FileMode) (n int64, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, failure.Wrap(failure.KindFilesystem, "create parent", err)
	}
	if info, err := os.Lstat(path); err == nil && info.IsDir() {
		return 0, failure.Errorf(failure.KindFilesystem, "write "+path, "destination is a directory")
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	perm |= 0o600

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return 0, failure.Wrap(failure.KindFilesystem, "create "+path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = failure.Wrap(failure.KindFilesystem, "close "+path, cerr)
		}
	}()

	n, err = io.Copy(f, r)
	if err != nil {
		// Read errors arrive already tagged as archive errors.
		return n, failure.Wrap(failure.KindFilesystem, "write "+path, err)
	}
	return n, nil
}
