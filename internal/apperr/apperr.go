// Package apperr defines the error-kind taxonomy shared by every component.
//
// Errors keep their kind through any number of fmt.Errorf("%w") layers, so
// the HTTP façade can map a failure deep inside the tool client or the model
// gateway to a deterministic client-facing code without string inspection.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The string value is the wire-level tag returned
// to API clients.
type Kind string

const (
	// KindUnknown is returned by KindOf for errors without a kind.
	KindUnknown Kind = "unknown"
	// KindInvalid marks a malformed or unacceptable request or configuration.
	KindInvalid Kind = "invalid"
	// KindConnection marks a handshake or transport failure at startup.
	KindConnection Kind = "connection"
	// KindProtocol marks use of a session before it is ready.
	KindProtocol Kind = "protocol"
	// KindToolExecution marks a remote tool call that could not be completed.
	KindToolExecution Kind = "tool_execution"
	// KindGateway marks a model API call failure.
	KindGateway Kind = "gateway"
	// KindSerialization marks a conversation-log write failure.
	KindSerialization Kind = "serialization"
)

// Error is a kinded error with an operation label for context.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and an operation label.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf walks the wrap chain and returns the kind of the outermost kinded
// error, or KindUnknown when none is found.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
