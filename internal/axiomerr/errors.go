// Package axiomerr defines the error kinds of the compositor core and
// the policy attached to each one (§7 of the design spec).
package axiomerr

import (
	"fmt"

	"github.com/axiomwm/axiom/internal/ids"
)

type Kind int

const (
	ProtocolViolation Kind = iota
	ConfigureTimeout
	BufferUnreadable
	GpuSubmissionError
	ResourceExhaustion
	Fatal
)

func (k Kind) String() string {
	switch k {
	case ProtocolViolation:
		return "protocol_violation"
	case ConfigureTimeout:
		return "configure_timeout"
	case BufferUnreadable:
		return "buffer_unreadable"
	case GpuSubmissionError:
		return "gpu_submission_error"
	case ResourceExhaustion:
		return "resource_exhaustion"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error carries a Kind plus enough context to act on the policy table:
// which client and/or surface it happened on, and the underlying cause.
type Error struct {
	Kind    Kind
	Client  ids.ClientID
	Surface ids.SurfaceID
	Msg     string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, client ids.ClientID, surface ids.SurfaceID, msg string) *Error {
	return &Error{Kind: kind, Client: client, Surface: surface, Msg: msg}
}

func Wrap(kind Kind, client ids.ClientID, surface ids.SurfaceID, msg string, cause error) *Error {
	return &Error{Kind: kind, Client: client, Surface: surface, Msg: msg, Cause: cause}
}

// Fatalf builds a Fatal-kind error for unreachable invariant violations
// (e.g. a window-stack index mismatch). These should never fire in a
// correct build; when they do, the caller is expected to log and exit.
func Fatalf(format string, args ...any) *Error {
	return &Error{Kind: Fatal, Msg: fmt.Sprintf(format, args...)}
}
