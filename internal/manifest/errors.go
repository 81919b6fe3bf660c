package manifest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingEnvironments indicates the document has no environments sequence.
	ErrMissingEnvironments = errors.New("missing environments sequence")

	// ErrDuplicateEnvironment indicates two environments share a name.
	ErrDuplicateEnvironment = errors.New("duplicate environment name")
)

// ReadError is returned when the manifest file cannot be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read manifest %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ParseError is returned when the manifest content is not a valid manifest.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse manifest: %v", e.Err)
	}
	return fmt.Sprintf("parse manifest %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownEnvironmentError is returned when no environment matches the target.
type UnknownEnvironmentError struct {
	Target    string
	Available []string
}

func (e *UnknownEnvironmentError) Error() string {
	var b strings.Builder
	if e.Target == "" {
		b.WriteString("no environment given")
	} else {
		fmt.Fprintf(&b, "unknown environment %q", e.Target)
	}
	if len(e.Available) == 0 {
		b.WriteString(" (manifest defines no environments)")
	} else {
		fmt.Fprintf(&b, " (available: %s)", strings.Join(e.Available, ", "))
	}
	return b.String()
}
