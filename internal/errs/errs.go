// Package errs classifies failures crossing the persistence boundary.
//
// Every failure surfaced to callers is an *Error carrying a Kind, a short
// fixed phrase naming the operation that was attempted, and the underlying
// cause. Lower layers wrap; nothing is swallowed. Render turns a cause chain
// into the single display string used by the outward surface.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies which component a failure came from.
type Kind string

const (
	// KindSerialisation: a document failed to decode or encode. Never retried.
	KindSerialisation Kind = "serialisation"

	// KindScheduling: the scheduling collaborator rejected its input.
	KindScheduling Kind = "scheduling"

	// KindDatabase: a store operation failed.
	KindDatabase Kind = "database"

	// KindConfiguration: initialization failed or never ran.
	KindConfiguration Kind = "configuration"

	// KindInvariant: a domain rule the store does not understand was violated.
	KindInvariant Kind = "invariant"
)

var kindPrefixes = map[Kind]string{
	KindSerialisation: "serialisation error",
	KindScheduling:    "scheduling error",
	KindDatabase:      "database error",
	KindConfiguration: "configuration error",
	KindInvariant:     "refused",
}

// Error is a classified failure.
type Error struct {
	// Kind is the failure category.
	Kind Kind

	// Context is a short fixed phrase such as "while saving a task".
	// Mandatory for KindDatabase so multi-step operations stay distinguishable.
	Context string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.message()
	}
	return e.message() + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) message() string {
	prefix, ok := kindPrefixes[e.Kind]
	if !ok {
		prefix = string(e.Kind) + " error"
	}
	if e.Context == "" {
		return prefix
	}
	return prefix + " " + e.Context
}

// Database wraps a store failure with the operation being attempted.
func Database(context string, err error) error {
	return &Error{Kind: KindDatabase, Context: context, Err: err}
}

// Serialisation wraps a codec failure.
func Serialisation(context string, err error) error {
	return &Error{Kind: KindSerialisation, Context: context, Err: err}
}

// Scheduling wraps a scheduler failure. The cause is surfaced verbatim.
func Scheduling(err error) error {
	return &Error{Kind: KindScheduling, Err: err}
}

// Configuration wraps an initialization failure.
func Configuration(context string, err error) error {
	return &Error{Kind: KindConfiguration, Context: context, Err: err}
}

// Invariant wraps a domain rule violation.
func Invariant(context string, err error) error {
	return &Error{Kind: KindInvariant, Context: context, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// ErrNotInitialized is returned by configuration lookups before Initialize
// has completed.
var ErrNotInitialized = errors.New("the configuration has not been initialized yet")

// ErrLastSegment is the cause when deleting the only remaining time segment.
var ErrLastSegment = errors.New("If you remove the last time segment, when should I schedule things?")

// ErrSegmentInUse matches any *SegmentInUseError via errors.Is.
var ErrSegmentInUse = errors.New("time segment is still referenced by tasks")

// SegmentInUseError reports how many tasks still reference a time segment.
type SegmentInUseError struct {
	Count int
}

func (e *SegmentInUseError) Error() string {
	what := "is still a task"
	if e.Count != 1 {
		what = fmt.Sprintf("are still %d tasks", e.Count)
	}
	return "There " + what + " in this time segment. " +
		"Please delete them or move them to another segment before deleting this segment."
}

// Is lets errors.Is(err, ErrSegmentInUse) match.
func (e *SegmentInUseError) Is(target error) bool {
	return target == ErrSegmentInUse
}
