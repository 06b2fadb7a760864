package archive

import (
	"strings"

	"github.com/klauspost/compress/zip"
	log "github.com/sirupsen/logrus"
)

type zipArchive struct {
	rc *zip.ReadCloser
}

func openZip(path string) (*zipArchive, error) {
	rc, err := zip.OpenReader(path)
	if rc == nil {
		return nil, err
	}
	if err != nil {
		// The reader flags names that are absolute or climb upwards but still
		// hands back a usable archive. Destinations are confined later.
		log.Debugf("zip %s: %v", path, err)
	}
	return &zipArchive{rc: rc}, nil
}

func (z *zipArchive) Format() Format { return FormatZip }

func (z *zipArchive) Entries() ([]Entry, error) {
	out := make([]Entry, 0, len(z.rc.File))
	for _, f := range z.rc.File {
		out = append(out, zipEntry(f))
	}
	return out, nil
}

func (z *zipArchive) Walk(fn WalkFunc) error {
	for _, f := range z.rc.File {
		e := zipEntry(f)
		if e.IsDir {
			if err := fn(e, strings.NewReader("")); err != nil {
				return err
			}
			continue
		}
		if err := z.walkFile(f, e, fn); err != nil {
			return err
		}
	}
	return nil
}

func (z *zipArchive) walkFile(f *zip.File, e Entry, fn WalkFunc) error {
	rc, err := f.Open()
	if err != nil {
		return archiveErr("open entry "+f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	return fn(e, wrapEntry(f.Name, rc))
}

func (z *zipArchive) Close() error {
	return z.rc.Close()
}

func zipEntry(f *zip.File) Entry {
	info := f.FileInfo()
	return Entry{
		Name:  f.Name,
		Size:  int64(f.UncompressedSize64),
		IsDir: info.IsDir() || strings.HasSuffix(f.Name, "/"),
		Mode:  f.Mode(),
	}
}
