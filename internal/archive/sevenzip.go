package archive

import (
	"strings"

	"github.com/bodgit/sevenzip"
)

type sevenZipArchive struct {
	rc *sevenzip.ReadCloser
}

func open7z(path string) (*sevenZipArchive, error) {
	rc, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	return &sevenZipArchive{rc: rc}, nil
}

func (s *sevenZipArchive) Format() Format { return Format7z }

func (s *sevenZipArchive) Entries() ([]Entry, error) {
	out := make([]Entry, 0, len(s.rc.File))
	for _, f := range s.rc.File {
		out = append(out, sevenZipEntry(f))
	}
	return out, nil
}

// Walk visits entries in header order. Solid blocks decode sequentially, so
// this order is also the cheapest.
func (s *sevenZipArchive) Walk(fn WalkFunc) error {
	for _, f := range s.rc.File {
		e := sevenZipEntry(f)
		if e.IsDir {
			if err := fn(e, strings.NewReader("")); err != nil {
				return err
			}
			continue
		}
		if err := walk7zFile(f, e, fn); err != nil {
			return err
		}
	}
	return nil
}

func walk7zFile(f *sevenzip.File, e Entry, fn WalkFunc) error {
	rc, err := f.Open()
	if err != nil {
		return archiveErr("open entry "+f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	return fn(e, wrapEntry(f.Name, rc))
}

func (s *sevenZipArchive) Close() error {
	return s.rc.Close()
}

func sevenZipEntry(f *sevenzip.File) Entry {
	info := f.FileInfo()
	return Entry{
		Name:  f.Name,
		Size:  int64(f.UncompressedSize),
		IsDir: info.IsDir(),
		Mode:  info.Mode(),
	}
}
