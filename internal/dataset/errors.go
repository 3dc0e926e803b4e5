package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested artifact does not exist on disk.
	ErrNotFound = errors.New("not found")
	// ErrMalformed is returned when an artifact exists but cannot be parsed.
	ErrMalformed = errors.New("malformed")
	// ErrOutOfRange is returned when a sample index is beyond the available count.
	ErrOutOfRange = errors.New("out of range")
	// ErrIO is returned when export output cannot be created or written.
	ErrIO = errors.New("io failure")
)

// Error describes a failed dataset operation. Kind is one of the sentinel
// errors above so callers can branch with errors.Is.
type Error struct {
	Op   string // e.g. "load summary"
	Key  string // timestamp, date, camera or index that was requested
	Path string // resolved path, if any
	Kind error
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Key != "" {
		b.WriteString(" ")
		b.WriteString(e.Key)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func notFound(op, key, path string) error {
	return &Error{Op: op, Key: key, Path: path, Kind: ErrNotFound}
}

func malformed(op, key, path string, err error) error {
	return &Error{Op: op, Key: key, Path: path, Kind: ErrMalformed, Err: err}
}

// IOError wraps a write-side failure with ErrIO.
func IOError(op, path string, err error) error {
	return &Error{Op: op, Path: path, Kind: ErrIO, Err: err}
}
