// Package gameerrors defines the structured error taxonomy shared by the
// game engine and its storage/transport boundaries.
package gameerrors

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindValidation marks malformed or out-of-range input, rejected before
	// any mutation.
	KindValidation Kind = "validation"
	// KindStateConflict marks an action submitted outside its valid phase or
	// by a player not allowed to perform it.
	KindStateConflict Kind = "state_conflict"
	// KindNotFound marks an unknown session, lobby code, game or player.
	KindNotFound Kind = "not_found"
	// KindCapacity marks a full session or a below-minimum start attempt.
	KindCapacity Kind = "capacity"
	// KindCodeSpaceExhausted marks lobby code allocation saturation.
	KindCodeSpaceExhausted Kind = "code_space_exhausted"
	// KindInternal marks unexpected infrastructure failures.
	KindInternal Kind = "internal"
)

// ErrVersionConflict is returned by the session store when a compare-and-save
// write observes a version other than the one the caller loaded. Callers are
// expected to reload and retry.
var ErrVersionConflict = errors.New("session version conflict")

// Error is a structured engine error carrying its taxonomy kind.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

func StateConflict(format string, args ...interface{}) *Error {
	return newError(KindStateConflict, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func Capacity(format string, args ...interface{}) *Error {
	return newError(KindCapacity, format, args...)
}

func CodeSpaceExhausted(format string, args ...interface{}) *Error {
	return newError(KindCodeSpaceExhausted, format, args...)
}

func Internal(format string, args ...interface{}) *Error {
	return newError(KindInternal, format, args...)
}

// KindOf extracts the taxonomy kind from err, or KindInternal when err does
// not carry one.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given taxonomy kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
