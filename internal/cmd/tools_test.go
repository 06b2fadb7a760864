package cmd

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adamancini/hotswap/internal/archive/archivetest"
)

func TestHashCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	body := []byte("payload body")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	md5sum := md5.Sum(body)
	shasum := sha256.Sum256(body)

	stdout, _, err := execute(t, "hash", path)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.Contains(stdout, hex.EncodeToString(md5sum[:])) {
		t.Errorf("output missing md5:\n%s", stdout)
	}
	if !strings.Contains(stdout, hex.EncodeToString(shasum[:])) {
		t.Errorf("output missing sha256:\n%s", stdout)
	}

	if _, _, err := execute(t, "hash", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("hash of a missing file should fail")
	}
}

func TestInspectCommand(t *testing.T) {
	path := archivetest.Tar(t, t.TempDir(), "update.tar.gz",
		archivetest.File{Name: "bin/demo", Body: "binary"},
		archivetest.File{Name: "../escape.txt", Body: "x"},
	)

	stdout, _, err := execute(t, "inspect", path)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(stdout, "(tar.gz)") {
		t.Errorf("output missing format:\n%s", stdout)
	}
	if !strings.Contains(stdout, "bin/demo") {
		t.Errorf("output missing entry:\n%s", stdout)
	}
	if !strings.Contains(stdout, "../escape.txt -> escape.txt") {
		t.Errorf("output should show the confined target:\n%s", stdout)
	}
	if !strings.Contains(stdout, "2 entries") {
		t.Errorf("output missing summary:\n%s", stdout)
	}

	garbage := archivetest.Garbage(t, t.TempDir(), "junk.zip")
	if _, _, err := execute(t, "inspect", garbage); err == nil {
		t.Error("inspect of garbage should fail")
	}
}

func TestResolveCommand(t *testing.T) {
	base := t.TempDir()

	stdout, _, err := execute(t, "resolve", base, "../../etc/passwd")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	want := filepath.Join(base, "etc", "passwd")
	if strings.TrimSpace(stdout) != want {
		t.Errorf("resolve = %q, want %q", strings.TrimSpace(stdout), want)
	}
}

func TestVersionCommand(t *testing.T) {
	hotswapVersion = "1.2.3"
	defer func() { hotswapVersion = "dev" }()

	stdout, _, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(stdout) != "1.2.3" {
		t.Errorf("version --short = %q", stdout)
	}

	stdout, _, err = execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(stdout, "hotswap version 1.2.3") || !strings.Contains(stdout, "platform:") {
		t.Errorf("version output = %q", stdout)
	}
}

func TestCompletionCommand(t *testing.T) {
	stdout, _, err := execute(t, "completion", "bash")
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if !strings.Contains(stdout, "hotswap") {
		t.Error("bash completion should mention the command name")
	}

	if _, _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("unsupported shell should be rejected")
	}
}
