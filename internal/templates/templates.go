// Package templates renders the user-facing status texts and expands
// environment references in configuration content.
package templates

import (
	"os"
	"regexp"
	"sort"
	"strings"
)

// Name identifies a configurable status text.
type Name string

const (
	Downloading Name = "downloading"
	Extracting  Name = "extracting"
	LaunchError Name = "launch_error"
)

var defaults = map[Name]string{
	Downloading: "Downloading update {SrcDownloadFile}...",
	Extracting:  "Applying update: {EntryFileName} ({EntryFileSize})",
	LaunchError: "The program can't start, please try to reinstall: {ExceptionMessage}",
}

var descriptions = map[Name]string{
	Downloading: "Headline while the payload downloads",
	Extracting:  "Headline for each extracted file",
	LaunchError: "Failure text when the follow-up program cannot start",
}

// List returns all template names sorted alphabetically.
func List() []Name {
	names := make([]Name, 0, len(defaults))
	for name := range defaults {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Default returns the built-in text for name, or "" if unknown.
func Default(name Name) string {
	return defaults[name]
}

// GetDescription returns the description for a template.
func GetDescription(name Name) string {
	if desc, ok := descriptions[name]; ok {
		return desc
	}
	return "Custom template"
}

// Set holds one text per template name. Empty fields fall back to defaults.
type Set struct {
	Downloading string `toml:"downloading" yaml:"downloading" json:"downloading"`
	Extracting  string `toml:"extracting" yaml:"extracting" json:"extracting"`
	LaunchError string `toml:"launch_error" yaml:"launch_error" json:"launch_error"`
}

// Get returns the text for name, falling back to the default.
func (s Set) Get(name Name) string {
	var v string
	switch name {
	case Downloading:
		v = s.Downloading
	case Extracting:
		v = s.Extracting
	case LaunchError:
		v = s.LaunchError
	}
	if strings.TrimSpace(v) == "" {
		return Default(name)
	}
	return v
}

// Vars are the placeholder values available to every template.
type Vars struct {
	SrcDownloadURL       string
	SrcDownloadFile      string
	SrcDownloadLocalFile string
	ArchiveFileName      string
	EntryFileName        string
	EntryFileSize        string
	ExceptionMessage     string
}

// Render substitutes {Placeholder} tokens in text. Unknown tokens are kept.
func Render(text string, v Vars) string {
	return strings.NewReplacer(
		"{SrcDownloadUrl}", v.SrcDownloadURL,
		"{SrcDownloadFile}", v.SrcDownloadFile,
		"{SrcDownloadLocalFile}", v.SrcDownloadLocalFile,
		"{ArchiveFileName}", v.ArchiveFileName,
		"{EntryFileName}", v.EntryFileName,
		"{EntryFileSize}", v.EntryFileSize,
		"{ExceptionMessage}", v.ExceptionMessage,
	).Replace(text)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// ExpandEnvVars replaces ${VAR} and ${VAR:-default} patterns in content.
func ExpandEnvVars(content []byte) []byte {
	return envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		parts := envVarPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := os.Getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}
