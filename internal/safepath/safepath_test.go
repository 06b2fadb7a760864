package safepath

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "srv", "app")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain file", "app.exe", filepath.Join(base, "app.exe")},
		{"nested file", "data/config.json", filepath.Join(base, "data", "config.json")},
		{"backslash nested", `data\config.json`, filepath.Join(base, "data", "config.json")},
		{"dot slash prefix", "./bin/tool", filepath.Join(base, "bin", "tool")},
		{"backslash traversal", `..\..\secrets.txt`, filepath.Join(base, "secrets.txt")},
		{"slash traversal", "../../x", filepath.Join(base, "x")},
		{"deep traversal", `..\..\..\evil.dll`, filepath.Join(base, "evil.dll")},
		{"inner traversal", "a/b/../../../../c", filepath.Join(base, "c")},
		{"inner parent kept in tree", "a/b/../c", filepath.Join(base, "a", "c")},
		{"unix absolute", "/etc/passwd", filepath.Join(base, "etc", "passwd")},
		{"windows absolute", `C:\Windows\evil.dll`, filepath.Join(base, "Windows", "evil.dll")},
		{"drive relative", `d:evil.dll`, filepath.Join(base, "evil.dll")},
		{"unc prefix", `\\server\share\file.txt`, filepath.Join(base, "server", "share", "file.txt")},
		{"empty", "", base},
		{"only dots", "...", base},
		{"only separators", `/\/\`, base},
		{"parent only", "..", base},
		{"drive only", "C:", base},
		{"directory entry", "data/", filepath.Join(base, "data")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(base, tt.input)
			assert.Equal(t, tt.want, got.String())
			assert.True(t, Within(base, got.String()), "%q escaped %q", got, base)
		})
	}
}

func TestResolveAlwaysWithinBase(t *testing.T) {
	base := t.TempDir()
	inputs := []string{
		"", ".", "..", "../", `..\`, "../../../../../../../../etc/shadow",
		`C:\`, `C:\..\..\x`, `\\?\C:\Windows\System32\drivers\etc\hosts`,
		`\\.\pipe\evil`, "//host/share/x", "a/../../b/../../c", "a\x00b",
		"~/.ssh/authorized_keys", "%SYSTEMROOT%\\evil.dll", "..../....//x",
		strings.Repeat("../", 200) + "deep",
	}

	for _, in := range inputs {
		got := Resolve(base, in)
		if !Within(base, got.String()) {
			t.Errorf("Resolve(%q, %q) = %q escapes base", base, in, got)
		}
		if !filepath.IsAbs(got.String()) {
			t.Errorf("Resolve(%q, %q) = %q is not absolute", base, in, got)
		}
	}
}

func TestPathRel(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "opt", "tool")

	p := Resolve(base, "lib/x.so")
	assert.Equal(t, filepath.Join("lib", "x.so"), p.Rel())
	assert.Equal(t, base, p.Base())
	assert.False(t, p.IsBase())

	root := Resolve(base, "../")
	assert.True(t, root.IsBase())
	assert.Equal(t, ".", root.Rel())
}

func TestWithin(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "srv", "app")

	assert.True(t, Within(base, base))
	assert.True(t, Within(base, filepath.Join(base, "x")))
	assert.True(t, Within(base+string(filepath.Separator), filepath.Join(base, "x")))
	assert.False(t, Within(base, base+"2"))
	assert.False(t, Within(base, filepath.Dir(base)))
}
