// Package rerr defines the error taxonomy shared by every component of the
// orchestration runtime: a fixed Kind plus a typed wrapper carrying a
// message and an optional cause.
package rerr

import "errors"

// Kind names one row of the error taxonomy. Kinds that are recorded into a
// step result rather than surfaced (ToolUnavailable, ArgsSynthesisFailed,
// ToolFailed, TimedOut, PermissionDenied) still use these sentinels so
// callers can errors.Is/As against a single vocabulary.
type Kind string

const (
	BlueprintInvalid   Kind = "BlueprintInvalid"
	ProviderUnavailable Kind = "ProviderUnavailable"
	ProviderCrashed     Kind = "ProviderCrashed"
	ToolUnavailable     Kind = "ToolUnavailable"
	ArgsSynthesisFailed Kind = "ArgsSynthesisFailed"
	ToolFailed          Kind = "ToolFailed"
	TimedOut            Kind = "TimedOut"
	PermissionDenied    Kind = "PermissionDenied"
	StepLimitExceeded   Kind = "StepLimitExceeded"
	Cancelled           Kind = "Cancelled"
	NotFound            Kind = "NotFound"
)

// Error is a taxonomy-tagged error. Disposition (surfaced vs. recorded) is
// a property of where the caller catches it, not of the Kind itself.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around a lower-level cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
