// Package failure classifies update errors into the kinds reported to the user.
//
// Every kind is fatal to a run. Components tag the errors they understand
// with Wrap; the orchestrator tags anything left untagged by the stage in
// which it happened.
package failure

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failed update.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindNetwork
	KindIntegrity
	KindArchive
	KindFilesystem
	KindTerminationTimeout
	KindLaunch
)

var kindNames = map[Kind]string{
	KindUnknown:            "UnknownError",
	KindConfiguration:      "ConfigurationError",
	KindNetwork:            "NetworkError",
	KindIntegrity:          "IntegrityError",
	KindArchive:            "ArchiveError",
	KindFilesystem:         "FilesystemError",
	KindTerminationTimeout: "TerminationTimeout",
	KindLaunch:             "LaunchError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText lets reports carry the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error is an error tagged with its Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind with no Err, so callers can
// write errors.Is(err, &failure.Error{Kind: failure.KindNetwork}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// Wrap tags err with kind. A nil err stays nil. An err that already carries
// a kind keeps it.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// New creates a tagged error from a message.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Errorf creates a tagged error with fmt.Errorf semantics, including %w.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
