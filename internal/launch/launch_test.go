package launch

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamancini/hotswap/internal/failure"
)

func TestSplitArgs(t *testing.T) {
	t.Setenv("HOTSWAP_TEST_USER", "alice")

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"simple", "--updated --quiet", []string{"--updated", "--quiet"}},
		{"double quotes", `--title "My App" -v`, []string{"--title", "My App", "-v"}},
		{"single quotes", `--path '/opt/my app'`, []string{"--path", "/opt/my app"}},
		{"env", "--user $HOTSWAP_TEST_USER", []string{"--user", "alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitArgs(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitArgsUnterminatedQuote(t *testing.T) {
	_, err := SplitArgs(`--title "oops`)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	dir := filepath.Join(string(filepath.Separator), "opt", "app")
	assert.Equal(t, filepath.Join(dir, "bin", "app"), Resolve(filepath.Join("bin", "app"), dir))

	abs := filepath.Join(string(filepath.Separator), "usr", "bin", "env")
	assert.Equal(t, abs, Resolve(abs, dir))
}

func TestStartMissingFile(t *testing.T) {
	_, err := Start("does-not-exist", "", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, failure.KindLaunch, failure.KindOf(err))
}

func TestStartEmptyFile(t *testing.T) {
	_, err := Start("", "", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, failure.KindLaunch, failure.KindOf(err))
}

func TestStartBadArgs(t *testing.T) {
	_, err := Start("app", `"unterminated`, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, failure.KindLaunch, failure.KindOf(err))
}

func TestStartRunsDetached(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "app.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$1\" > launched.txt\n"), 0o755))

	pid, err := Start("app.sh", `"hello world"`, dir)
	require.NoError(t, err)
	assert.Positive(t, pid)

	marker := filepath.Join(dir, "launched.txt")
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(marker)
		return err == nil && string(b) == "hello world\n"
	}, 5*time.Second, 20*time.Millisecond)
}
