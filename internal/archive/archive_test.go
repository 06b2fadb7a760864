package archive

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamancini/hotswap/internal/archive/archivetest"
	"github.com/adamancini/hotswap/internal/failure"
)

var sample = []archivetest.File{
	{Name: "app.exe", Body: "binary v2"},
	{Name: "data/"},
	{Name: "data/config.json", Body: `{"v":2}`},
}

func collect(t *testing.T, a Archive) map[string]string {
	t.Helper()
	got := map[string]string{}
	err := a.Walk(func(e Entry, r io.Reader) error {
		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		if e.IsDir {
			got[e.Name] = "<dir>"
			return nil
		}
		got[e.Name] = string(b)
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestOpenFormats(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		path   string
		format Format
	}{
		{"zip", archivetest.Zip(t, dir, "p.zip", sample...), FormatZip},
		{"tar", archivetest.Tar(t, dir, "p.tar", sample...), FormatTar},
		{"tar.gz", archivetest.Tar(t, dir, "p.tar.gz", sample...), FormatTarGz},
		{"tar.zst", archivetest.Tar(t, dir, "p.tar.zst", sample...), FormatTarZst},
		{"7z", archivetest.SevenZip(t, dir, "p.7z"), Format7z},
		{"zip with misleading name", archivetest.Zip(t, dir, "payload.bin", sample...), FormatZip},
		{"7z with misleading name", archivetest.SevenZip(t, dir, "payload.tmp"), Format7z},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Open(tt.path)
			require.NoError(t, err)
			defer a.Close()

			assert.Equal(t, tt.format, a.Format())

			entries, err := a.Entries()
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, "app.exe", entries[0].Name)
			assert.Equal(t, int64(len("binary v2")), entries[0].Size)
			assert.True(t, entries[1].IsDir)
			assert.Equal(t, "data/config.json", entries[2].Name)

			assert.Equal(t, map[string]string{
				"app.exe":          "binary v2",
				"data/":            "<dir>",
				"data/config.json": `{"v":2}`,
			}, collect(t, a))
		})
	}
}

func TestWalkPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	path := archivetest.Zip(t, dir, "p.zip",
		archivetest.File{Name: "z.txt", Body: "z"},
		archivetest.File{Name: "a.txt", Body: "a"},
		archivetest.File{Name: "m.txt", Body: "m"},
	)
	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	var names []string
	require.NoError(t, a.Walk(func(e Entry, _ io.Reader) error {
		names = append(names, e.Name)
		return nil
	}))
	assert.Equal(t, []string{"z.txt", "a.txt", "m.txt"}, names)
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	path := archivetest.Zip(t, t.TempDir(), "p.zip", sample...)
	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	boom := errors.New("disk full")
	calls := 0
	err = a.Walk(func(Entry, io.Reader) error {
		calls++
		return boom
	})
	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestOpenRejectsGarbage(t *testing.T) {
	_, err := Open(archivetest.Garbage(t, t.TempDir(), "p.zip"))
	require.Error(t, err)
	assert.Equal(t, failure.KindArchive, failure.KindOf(err))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.zip"))
	require.Error(t, err)
	assert.Equal(t, failure.KindArchive, failure.KindOf(err))
}

func TestOpenTruncated(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"p.zip", "p.tar.gz"} {
		t.Run(name, func(t *testing.T) {
			var path string
			if name == "p.zip" {
				path = archivetest.Zip(t, dir, name, sample...)
			} else {
				path = archivetest.Tar(t, dir, name, sample...)
			}
			archivetest.Truncate(t, path)

			a, err := Open(path)
			if err != nil {
				assert.Equal(t, failure.KindArchive, failure.KindOf(err))
				return
			}
			defer a.Close()
			err = a.Walk(func(_ Entry, r io.Reader) error {
				_, err := io.Copy(io.Discard, r)
				return err
			})
			require.Error(t, err)
			assert.Equal(t, failure.KindArchive, failure.KindOf(err))
		})
	}
}

func TestCorruptEntryDataIsArchiveError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.zip")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "app.exe", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte("original payload bytes"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	raw := bytes.Replace(buf.Bytes(), []byte("original"), []byte("tampered"), 1)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	err = a.Walk(func(_ Entry, r io.Reader) error {
		_, err := io.Copy(io.Discard, r)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, failure.KindArchive, failure.KindOf(err))
}

func TestDetect(t *testing.T) {
	ustar := make([]byte, 512)
	copy(ustar[257:], "ustar")

	tests := []struct {
		name   string
		header []byte
		want   Format
	}{
		{"zip", []byte("PK\x03\x04rest"), FormatZip},
		{"empty zip", []byte("PK\x05\x06"), FormatZip},
		{"7z", []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C, 0, 4}, Format7z},
		{"gzip", []byte{0x1f, 0x8b, 8}, FormatTarGz},
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd}, FormatTarZst},
		{"tar", ustar, FormatTar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Detect([]byte("PK"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = Detect(nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSevenZipEntryModes(t *testing.T) {
	a, err := Open(archivetest.SevenZip(t, t.TempDir(), "p.7z"))
	require.NoError(t, err)
	defer a.Close()

	entries, err := a.Entries()
	require.NoError(t, err)
	require.Len(t, entries, len(archivetest.SevenZipFiles))

	for i, want := range archivetest.SevenZipFiles {
		assert.Equal(t, want.Name, entries[i].Name)
		assert.Equal(t, int64(len(want.Body)), entries[i].Size, want.Name)
	}
	assert.Equal(t, os.FileMode(0o755), entries[0].Mode.Perm())
	assert.True(t, entries[1].IsDir)
	assert.True(t, entries[1].Mode.IsDir())
	assert.Equal(t, os.FileMode(0o644), entries[2].Mode.Perm())
}

func TestOpenCorrupt7z(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.7z")
	header := []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C, 0, 4}
	require.NoError(t, os.WriteFile(path, append(header, bytes.Repeat([]byte{0xff}, 64)...), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Equal(t, failure.KindArchive, failure.KindOf(err))
}
