// Package config handles hotswap config file parsing and location resolution.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adamancini/hotswap/internal/templates"
	"github.com/adamancini/hotswap/internal/types"
)

// EnvConfig names the environment variable that points at a config file.
const EnvConfig = "HOTSWAP_CONFIG"

// ErrNoConfig is returned by FindConfig when no file exists in any of the
// implicit locations. Running without a config file is allowed.
var ErrNoConfig = errors.New("no hotswap config file found")

// File is the parsed config file. Every field is optional; command line
// flags take precedence over it.
type File struct {
	TargetAppName      string        `yaml:"target_app_name" toml:"target_app_name" json:"target_app_name"`
	TargetProcessName  string        `yaml:"target_process_name" toml:"target_process_name" json:"target_process_name"`
	TargetRootPath     string        `yaml:"target_root_path" toml:"target_root_path" json:"target_root_path"`
	DownloadProxy      string        `yaml:"download_proxy" toml:"download_proxy" json:"download_proxy"`
	LaunchFile         string        `yaml:"launch_file" toml:"launch_file" json:"launch_file"`
	LaunchArgs         string        `yaml:"launch_args" toml:"launch_args" json:"launch_args"`
	UpdateMode         string        `yaml:"update_mode" toml:"update_mode" json:"update_mode"`
	TerminationTimeout string        `yaml:"termination_timeout" toml:"termination_timeout" json:"termination_timeout"`
	SelfPattern        string        `yaml:"self_pattern" toml:"self_pattern" json:"self_pattern"`
	NoArgsLaunchFile   string        `yaml:"no_args_launch_file" toml:"no_args_launch_file" json:"no_args_launch_file"`
	NoArgsLaunchArgs   string        `yaml:"no_args_launch_args" toml:"no_args_launch_args" json:"no_args_launch_args"`
	NoArgsMessage      string        `yaml:"no_args_message" toml:"no_args_message" json:"no_args_message"`
	Text               templates.Set `yaml:"text" toml:"text" json:"text"`
}

// Mode returns the configured update mode, or "" when none is set.
func (f *File) Mode() (types.UpdateMode, error) {
	if strings.TrimSpace(f.UpdateMode) == "" {
		return "", nil
	}
	return types.ParseUpdateMode(f.UpdateMode)
}

// Timeout returns the configured termination timeout, or 0 when none is
// set. A bare number is read as seconds.
func (f *File) Timeout() (time.Duration, error) {
	return ParseDuration(f.TerminationTimeout)
}

// ParseDuration accepts Go duration strings ("10s", "1m30s") and bare
// numbers of seconds. Empty input is zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// FindConfig searches for a config file.
// Order: explicitPath, $HOTSWAP_CONFIG, then hotswap.{toml,yaml,yml,json}
// in baseDir. An explicit path that does not exist is an error; finding
// nothing in the implicit locations returns ErrNoConfig.
func FindConfig(explicitPath, baseDir string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	if envPath := os.Getenv(EnvConfig); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	fileNames := []string{
		"hotswap.toml",
		"hotswap.yaml",
		"hotswap.yml",
		"hotswap.json",
	}
	for _, name := range fileNames {
		path := filepath.Join(baseDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", ErrNoConfig
}

// Load reads, parses and validates a config file.
func Load(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	file, err := parse(content, format)
	if err != nil {
		return nil, err
	}

	if err := Validate(file); err != nil {
		return nil, err
	}

	return file, nil
}
