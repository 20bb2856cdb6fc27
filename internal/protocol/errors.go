package protocol

import (
	"context"
	"errors"
)

// Kind is the error taxonomy from the error-handling design: a coarse
// classification, not a type hierarchy.
type Kind string

const (
	KindTransport Kind = "transport"
	KindParse     Kind = "parse"
	KindBudget    Kind = "budget"
	KindTool      Kind = "tool"
	KindState     Kind = "state"
	KindCancelled Kind = "cancelled"
)

// Error is a taxonomy-tagged error returned by the LLM client, tool
// subsystem, and agent run loop.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (k Kind) String() string { return string(k) }

// NewError constructs an Error of the given Kind.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// ErrCancelled is the sentinel surfaced when a request's deadline or
// explicit cancellation fires. It is not treated as a user-visible error.
var ErrCancelled = NewError(KindCancelled, "request cancelled", nil)

// IsCancelled reports whether err is a cancellation: the first *Error in its
// chain has KindCancelled, or, when the chain holds no *Error, it wraps
// context.Canceled or context.DeadlineExceeded.
func IsCancelled(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindCancelled
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
