package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

// tarArchive re-reads the file for every pass since tar streams are not
// seekable once compressed.
type tarArchive struct {
	path   string
	format Format
}

func openTar(path string, format Format) (*tarArchive, error) {
	t := &tarArchive{path: path, format: format}
	// Validate the compression and the first header up front so a corrupt
	// payload is rejected at open time.
	tr, closeFn, err := t.open()
	if err != nil {
		return nil, err
	}
	defer closeFn()
	if _, err := tr.Next(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read tar header: %w", err)
	}
	return t, nil
}

func (t *tarArchive) open() (*tar.Reader, func(), error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, nil, err
	}

	var (
		r       io.Reader = f
		closers           = []func(){func() { _ = f.Close() }}
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch t.format {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("create gzip reader: %w", err)
		}
		closers = append(closers, func() { _ = gz.Close() })
		r = gz
	case FormatTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("create zstd reader: %w", err)
		}
		closers = append(closers, zr.Close)
		r = zr
	}
	return tar.NewReader(r), closeAll, nil
}

func (t *tarArchive) Format() Format { return t.format }

func (t *tarArchive) Entries() ([]Entry, error) {
	var out []Entry
	err := t.each(func(e Entry, _ io.Reader) error {
		out = append(out, e)
		return nil
	})
	return out, err
}

func (t *tarArchive) Walk(fn WalkFunc) error {
	return t.each(func(e Entry, r io.Reader) error {
		return fn(e, wrapEntry(e.Name, r))
	})
}

func (t *tarArchive) each(fn WalkFunc) error {
	tr, closeFn, err := t.open()
	if err != nil {
		return archiveErr("open archive", err)
	}
	defer closeFn()

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return archiveErr("read tar header", err)
		}

		var e Entry
		switch header.Typeflag {
		case tar.TypeDir:
			e = Entry{Name: header.Name, IsDir: true, Mode: header.FileInfo().Mode()}
		case tar.TypeReg:
			e = Entry{Name: header.Name, Size: header.Size, Mode: header.FileInfo().Mode()}
		default:
			log.Debugf("skipping tar entry %q of type %q", header.Name, string(header.Typeflag))
			continue
		}
		if e.IsDir && !strings.HasSuffix(e.Name, "/") {
			e.Name += "/"
		}
		if err := fn(e, tr); err != nil {
			return err
		}
	}
}

func (t *tarArchive) Close() error { return nil }
