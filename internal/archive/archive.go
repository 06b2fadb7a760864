// Package archive reads update payloads.
//
// Every supported container sits behind the Archive interface, which lists
// entries and streams them in archive order. Errors that come from the
// payload itself (bad magic, corrupt headers, checksum failures while
// reading entry data) are ArchiveErrors, so callers can tell them apart from
// failures writing the extracted bytes.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/adamancini/hotswap/internal/failure"
)

// Format identifies a container format.
type Format string

const (
	FormatZip    Format = "zip"
	Format7z     Format = "7z"
	FormatTar    Format = "tar"
	FormatTarGz  Format = "tar.gz"
	FormatTarZst Format = "tar.zst"
)

// Entry is one record of an archive.
type Entry struct {
	Name  string      `json:"name" yaml:"name"`
	Size  int64       `json:"size" yaml:"size"`
	IsDir bool        `json:"is_dir" yaml:"is_dir"`
	Mode  fs.FileMode `json:"-" yaml:"-"`
}

// WalkFunc receives each entry with a reader over its content. The reader is
// only valid for the duration of the call. Directory entries get an empty
// reader.
type WalkFunc func(e Entry, r io.Reader) error

// Archive is an opened payload.
type Archive interface {
	Format() Format
	// Entries lists every entry in archive order without extracting.
	Entries() ([]Entry, error)
	// Walk streams every entry in archive order. An error returned by fn
	// stops the walk and is returned unchanged.
	Walk(fn WalkFunc) error
	Close() error
}

// ErrUnknownFormat is returned when no decoder recognises the payload.
var ErrUnknownFormat = errors.New("unrecognized archive format")

var (
	magicZip      = []byte("PK\x03\x04")
	magicZipEmpty = []byte("PK\x05\x06")
	magic7z       = []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip     = []byte{0x1f, 0x8b}
	magicZstd     = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicUstar    = []byte("ustar")
)

const ustarOffset = 257

// Detect identifies the format from the first bytes of a payload. Compressed
// streams are assumed to wrap a tar archive.
func Detect(header []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(header, magicZip), bytes.HasPrefix(header, magicZipEmpty):
		return FormatZip, nil
	case bytes.HasPrefix(header, magic7z):
		return Format7z, nil
	case bytes.HasPrefix(header, magicGzip):
		return FormatTarGz, nil
	case bytes.HasPrefix(header, magicZstd):
		return FormatTarZst, nil
	case len(header) >= ustarOffset+len(magicUstar) &&
		bytes.Equal(header[ustarOffset:ustarOffset+len(magicUstar)], magicUstar):
		return FormatTar, nil
	}
	return "", ErrUnknownFormat
}

// DetectFile reads the header of the file at path and identifies its format.
func DetectFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, 512)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return Detect(header[:n])
}

// Open detects the format of the file at path and opens it. A missing file,
// an unknown format, or a header the decoder rejects is an ArchiveError.
func Open(path string) (Archive, error) {
	format, err := DetectFile(path)
	if err != nil {
		return nil, failure.Wrap(failure.KindArchive, "open archive", fmt.Errorf("%s: %w", path, err))
	}
	return OpenFormat(path, format)
}

// OpenFormat opens path with the decoder for format.
func OpenFormat(path string, format Format) (Archive, error) {
	var (
		a   Archive
		err error
	)
	switch format {
	case FormatZip:
		a, err = openZip(path)
	case Format7z:
		a, err = open7z(path)
	case FormatTar, FormatTarGz, FormatTarZst:
		a, err = openTar(path, format)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, failure.Wrap(failure.KindArchive, "open archive", fmt.Errorf("%s: %w", path, err))
	}
	return a, nil
}

// entryReader tags read errors as archive errors so that io.Copy callers
// can distinguish a corrupt payload from a failing destination.
type entryReader struct {
	r    io.Reader
	name string
}

func (e *entryReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = failure.Wrap(failure.KindArchive, "read entry "+e.name, err)
	}
	return n, err
}

func wrapEntry(name string, r io.Reader) io.Reader {
	return &entryReader{r: r, name: name}
}

func archiveErr(op string, err error) error {
	return failure.Wrap(failure.KindArchive, op, err)
}
