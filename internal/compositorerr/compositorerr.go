// Package compositorerr implements the error taxonomy of spec.md §7: every
// failure the compositor core can observe is tagged with a Kind that
// determines how the frame pipeline propagates it.
package compositorerr

import "fmt"

// Kind classifies an Error by how it must be handled.
type Kind int

const (
	// TransientIO is a retry-next-frame condition: PTY read/write returned
	// WouldBlock, IPC accept returned EAGAIN.
	TransientIO Kind = iota
	// ChildExit means a PTY child was reaped; the owning cell terminates
	// and window-lifecycle promotion/restoration runs.
	ChildExit
	// ParseError is malformed IPC JSON or a malformed config file; the
	// offending message or file is logged and ignored, defaults apply.
	ParseError
	// ProtocolMisuse is a client committing an impossible size or letting a
	// pending configure expire; pending state is cancelled and reconfigured.
	ProtocolMisuse
	// FatalInit means the backend could not initialize or the IPC socket
	// could not bind; the process aborts with a non-zero exit.
	FatalInit
)

func (k Kind) String() string {
	switch k {
	case TransientIO:
		return "transient_io"
	case ChildExit:
		return "child_exit"
	case ParseError:
		return "parse_error"
	case ProtocolMisuse:
		return "protocol_misuse"
	case FatalInit:
		return "fatal_init"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind, so callers can dispatch on
// How to propagate it (absorb, mark a cell dead, or bubble to main) without
// string matching.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with the given Kind and an operation label for context.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is a compositorerr.Error of the given Kind.
func Is(err error, kind Kind) bool {
	var ce *Error
	if e, ok := err.(*Error); ok {
		ce = e
	} else {
		return false
	}
	return ce.Kind == kind
}

// Fatal reports whether err should abort the process (FatalInit).
func Fatal(err error) bool {
	return Is(err, FatalInit)
}
