// Package fault defines the error taxonomy shared by all maestro
// subsystems. Every fallible boundary converts raw lower-level errors
// into one of these kinds before returning them upward.
package fault

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and reporting.
type Kind string

const (
	KindConfig            Kind = "config"             // Inconsistent configuration; fatal at startup
	KindNotAvailable      Kind = "not_available"      // No validated model satisfies role/constraints
	KindBackend           Kind = "backend_failure"    // Invocation failed (timeout, exit code, non-2xx)
	KindShape             Kind = "shape_error"        // Model output did not match the expected JSON shape
	KindResourceExhausted Kind = "resource_exhausted" // Load admission rejected
	KindCancelled         Kind = "cancelled"          // Cooperative cancellation; not reported as an error
	KindInternal          Kind = "internal"           // Bug-class; surfaced opaquely
)

// Error carries a kind, the operation that failed, and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a formatted message.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to a cause. Returns nil for a nil cause.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the kind of an error, walking the wrap chain.
// Unclassified errors report KindInternal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsCancelled reports whether an error is a cooperative cancellation,
// either through the taxonomy or a raw context error.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindCancelled {
		return true
	}
	return errors.Is(err, context.Canceled)
}
