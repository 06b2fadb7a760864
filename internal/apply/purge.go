package apply

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// ExcludePattern builds the purge exclusion regexp. selfPattern matches the
// updater's own files by base name; when empty it defaults to the quoted
// stem of selfExe followed by anything. The archive's own base name is
// always excluded.
func ExcludePattern(selfExe, selfPattern, archivePath string) (*regexp.Regexp, error) {
	if selfPattern == "" {
		name := baseName(selfExe)
		stem := strings.TrimSuffix(name, path.Ext(name))
		selfPattern = regexp.QuoteMeta(stem) + ".*"
	}

	alts := []string{selfPattern}
	if archivePath != "" {
		alts = append(alts, regexp.QuoteMeta(baseName(archivePath)))
	}

	re, err := regexp.Compile("^(?:" + strings.Join(alts, "|") + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid self pattern %q: %w", selfPattern, err)
	}
	return re, nil
}

// baseName accepts either separator so Windows paths work on any host.
func baseName(p string) string {
	return path.Base(strings.ReplaceAll(p, `\`, "/"))
}

// PurgeResult counts what Purge removed and kept.
type PurgeResult struct {
	Removed int
	Kept    []string
}

// Purge deletes everything under root except files whose base name matches
// exclude. Directories are emptied recursively and removed unless something
// excluded remains inside them. root itself is never removed, and a missing
// root is not an error. Every failure is collected and returned together.
func Purge(root string, exclude *regexp.Regexp) (PurgeResult, error) {
	var res PurgeResult
	var errs *multierror.Error

	if _, err := os.Lstat(root); errors.Is(err, os.ErrNotExist) {
		return res, nil
	}

	purgeDir(root, exclude, &res, &errs)
	return res, errs.ErrorOrNil()
}

// purgeDir reports whether dir is empty afterwards.
func purgeDir(dir string, exclude *regexp.Regexp, res *PurgeResult, errs **multierror.Error) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		*errs = multierror.Append(*errs, fmt.Errorf("read %s: %w", dir, err))
		return false
	}

	empty := true
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())

		// ReadDir reports symlinks as non-directories, so links are
		// removed without following them.
		if e.IsDir() {
			if !purgeDir(p, exclude, res, errs) {
				empty = false
				continue
			}
			if err := os.Remove(p); err != nil {
				*errs = multierror.Append(*errs, fmt.Errorf("remove %s: %w", p, err))
				empty = false
				continue
			}
			res.Removed++
			continue
		}

		if exclude != nil && exclude.MatchString(e.Name()) {
			log.Debugf("purge: keeping %s", p)
			res.Kept = append(res.Kept, p)
			empty = false
			continue
		}
		if err := os.Remove(p); err != nil {
			*errs = multierror.Append(*errs, fmt.Errorf("remove %s: %w", p, err))
			empty = false
			continue
		}
		res.Removed++
	}
	return empty
}
