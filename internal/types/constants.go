// Package types provides type-safe constants for the hotswap update pipeline.
//
// This package centralizes the enumerated types shared by the config layer,
// the CLI, and the orchestrator, replacing magic strings with typed constants
// that carry their own validation.
package types

import (
	"fmt"
	"strings"
)

// UpdateMode decides whether the target root is purged before the payload
// is applied.
type UpdateMode string

const (
	// ModeOverwriteFiles writes archive entries over the existing tree.
	ModeOverwriteFiles UpdateMode = "overwrite"
	// ModeDeleteAllFiles empties the root (minus the updater and payload) first.
	ModeDeleteAllFiles UpdateMode = "delete-all"
)

// AllUpdateModes returns all valid update modes.
func AllUpdateModes() []UpdateMode {
	return []UpdateMode{ModeOverwriteFiles, ModeDeleteAllFiles}
}

// Validate checks if the UpdateMode is a valid value.
func (m UpdateMode) Validate() error {
	switch m {
	case ModeOverwriteFiles, ModeDeleteAllFiles:
		return nil
	case "":
		return fmt.Errorf("update mode is required")
	default:
		return fmt.Errorf("invalid update mode '%s' (must be overwrite or delete-all)", m)
	}
}

// String returns the string representation of the UpdateMode.
func (m UpdateMode) String() string {
	return string(m)
}

// PurgesRoot returns true if the mode deletes existing files before applying.
func (m UpdateMode) PurgesRoot() bool {
	return m == ModeDeleteAllFiles
}

// Default returns ModeOverwriteFiles if empty, otherwise the current mode.
func (m UpdateMode) Default() UpdateMode {
	if m == "" {
		return ModeOverwriteFiles
	}
	return m
}

// ParseUpdateMode parses a string into an UpdateMode.
// Besides the canonical names it accepts the numeric values (1, 2) and the
// CamelCase names (OverwriteFiles, DeleteAllFiles) used by older launchers.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overwrite", "overwritefiles", "1":
		return ModeOverwriteFiles, nil
	case "delete-all", "deleteall", "deleteallfiles", "2":
		return ModeDeleteAllFiles, nil
	}
	m := UpdateMode(s)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

// State is a step of the update pipeline.
type State string

const (
	StateIdle        State = "idle"
	StateAcquiring   State = "acquiring"
	StateVerifying   State = "verifying"
	StateTerminating State = "terminating"
	StateApplying    State = "applying"
	StateRelaunching State = "relaunching"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// AllStates returns every pipeline state in pipeline order, Failed last.
func AllStates() []State {
	return []State{
		StateIdle, StateAcquiring, StateVerifying, StateTerminating,
		StateApplying, StateRelaunching, StateDone, StateFailed,
	}
}

// String returns the string representation of the State.
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true for Done and Failed.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// HashAlgorithm names the digest used to pin a payload.
type HashAlgorithm string

const (
	HashMD5    HashAlgorithm = "md5"
	HashSHA256 HashAlgorithm = "sha256"
)

// Validate checks if the HashAlgorithm is a valid value.
func (h HashAlgorithm) Validate() error {
	switch h {
	case HashMD5, HashSHA256:
		return nil
	case "":
		return fmt.Errorf("hash algorithm is required")
	default:
		return fmt.Errorf("invalid hash algorithm '%s' (must be md5 or sha256)", h)
	}
}

// String returns the string representation of the HashAlgorithm.
func (h HashAlgorithm) String() string {
	return string(h)
}

// HexLen returns the length of the algorithm's hex-encoded digest.
func (h HashAlgorithm) HexLen() int {
	switch h {
	case HashMD5:
		return 32
	case HashSHA256:
		return 64
	default:
		return 0
	}
}
