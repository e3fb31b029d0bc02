package domain

import (
	"errors"
	"fmt"
)

// Kind classifies the recoverable failures the public operations report.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindEligibility
	KindConflict
	KindNotFound
	KindState
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindEligibility:
		return "eligibility"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	case KindDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Error is the structured failure type surfaced to callers. Message is safe
// to show to end users.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...any) *Error {
	return Errorf(KindValidation, format, args...)
}

func EligibilityError(format string, args ...any) *Error {
	return Errorf(KindEligibility, format, args...)
}

func ConflictError(format string, args ...any) *Error {
	return Errorf(KindConflict, format, args...)
}

func NotFoundError(format string, args ...any) *Error {
	return Errorf(KindNotFound, format, args...)
}

func StateError(format string, args ...any) *Error {
	return Errorf(KindState, format, args...)
}

func DuplicateError(format string, args ...any) *Error {
	return Errorf(KindDuplicate, format, args...)
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the user-safe message, or a generic one for internal
// faults that must not escape.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
