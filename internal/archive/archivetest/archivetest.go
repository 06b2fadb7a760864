// Package archivetest builds payload archives for tests.
package archivetest

import (
	"archive/tar"
	_ "embed"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// File is one archive member. A Name ending in "/" is a directory.
type File struct {
	Name string
	Body string
}

// Zip writes files to dir/name as a zip archive and returns its path.
func Zip(t testing.TB, dir, name string, files ...File) string {
	t.Helper()
	path := filepath.Join(dir, name)
	out := create(t, path)
	defer closeOrFail(t, out)

	zw := zip.NewWriter(out)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			t.Fatalf("zip create %s: %v", f.Name, err)
		}
		if !isDir(f) {
			if _, err := io.WriteString(w, f.Body); err != nil {
				t.Fatalf("zip write %s: %v", f.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return path
}

// Tar writes files as a tar archive, compressed according to the extension
// of name (".tar", ".tar.gz" or ".tar.zst").
func Tar(t testing.TB, dir, name string, files ...File) string {
	t.Helper()
	path := filepath.Join(dir, name)
	out := create(t, path)
	defer closeOrFail(t, out)

	var (
		w      io.Writer = out
		finish           = func() error { return nil }
	)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gz := gzip.NewWriter(out)
		w, finish = gz, gz.Close
	case strings.HasSuffix(name, ".tar.zst"):
		zw, err := zstd.NewWriter(out)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		w, finish = zw, zw.Close
	}

	tw := tar.NewWriter(w)
	for _, f := range files {
		hdr := &tar.Header{Name: f.Name, Mode: 0o644, Typeflag: tar.TypeReg, Size: int64(len(f.Body))}
		if isDir(f) {
			hdr.Typeflag, hdr.Mode, hdr.Size = tar.TypeDir, 0o755, 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", f.Name, err)
		}
		if !isDir(f) {
			if _, err := io.WriteString(tw, f.Body); err != nil {
				t.Fatalf("tar write %s: %v", f.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := finish(); err != nil {
		t.Fatalf("compressor close: %v", err)
	}
	return path
}

//go:embed testdata/app.7z
var sevenZip []byte

// SevenZipFiles lists the members of the archive SevenZip writes, in header
// order.
var SevenZipFiles = []File{
	{Name: "app.exe", Body: "binary v2"},
	{Name: "data/"},
	{Name: "data/config.json", Body: `{"v":2}`},
}

// SevenZip writes a stored 7z archive holding SevenZipFiles to dir/name.
// app.exe carries mode 0755 and data/config.json mode 0644.
func SevenZip(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, sevenZip, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Garbage writes bytes that no decoder accepts.
func Garbage(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("this is not an archive at all"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Truncate cuts the file at path to half its size.
func Truncate(t testing.TB, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if err := os.Truncate(path, info.Size()/2); err != nil {
		t.Fatalf("truncate %s: %v", path, err)
	}
}

func isDir(f File) bool { return strings.HasSuffix(f.Name, "/") }

func create(t testing.TB, path string) *os.File {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	return out
}

func closeOrFail(t testing.TB, f *os.File) {
	t.Helper()
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", f.Name(), err)
	}
}
