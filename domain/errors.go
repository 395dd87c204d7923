package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind classifies every error the engine surfaces. Kinds are taxonomic, not
// transport-specific: outer layers map them to HTTP statuses or log severity,
// the core only decides which kind applies.
type Kind string

const (
	// KindValidation indicates input rejected by field constraints. The
	// caller should fix the input; retrying unchanged cannot succeed.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindNotFound indicates the entity is missing or not owned by the
	// requester. The two cases are deliberately indistinguishable so ids
	// cannot be enumerated.
	KindNotFound Kind = "NOT_FOUND"
	// KindVersionConflict indicates an optimistic-lock failure. The caller
	// should reload the entity and retry.
	KindVersionConflict Kind = "VERSION_CONFLICT"
	// KindInvalidTransition indicates a state machine rejected an event.
	// The error carries the current state and the allowed events.
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	// KindBackend indicates the KV backend or a downstream dependency
	// failed. Retryable at the caller's discretion.
	KindBackend Kind = "BACKEND_ERROR"
	// KindIntegrity indicates stored data failed its integrity hash. Fatal
	// for that entity; never silently repaired.
	KindIntegrity Kind = "INTEGRITY_FAILURE"
	// KindDecryption indicates stored ciphertext could not be opened. Fatal
	// for that entity; never silently repaired.
	KindDecryption Kind = "DECRYPTION_FAILURE"
	// KindGenerationFailed indicates curriculum generation exhausted its
	// retries. The message carries the last underlying failure.
	KindGenerationFailed Kind = "GENERATION_FAILED"
	// KindRateLimited indicates a rate-limited dependency rejected the
	// call. RetryAfter carries the suggested backoff when known.
	KindRateLimited Kind = "RATE_LIMITED"
)

// Error is the single error type exchanged across subsystem boundaries. All
// engine APIs return it by value-returning convention; nothing is thrown
// across package lines.
type Error struct {
	// Kind is the taxonomic classification.
	Kind Kind
	// Message is a human-readable description. It never embeds raw user
	// payloads.
	Message string
	// CurrentState is set for KindInvalidTransition: the state the entity
	// was in when the event was rejected.
	CurrentState string
	// AllowedEvents is set for KindInvalidTransition: the events the
	// current state accepts.
	AllowedEvents []string
	// RetryAfter is set for KindRateLimited when the dependency suggested
	// a backoff.
	RetryAfter time.Duration

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.CurrentState != "" {
		return fmt.Sprintf("%s: %s (current state %q, allowed events: %s)",
			e.Kind, e.Message, e.CurrentState, strings.Join(e.AllowedEvents, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// NewError builds an Error of the given kind with a formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error of the given kind wrapping cause.
func WrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// NewTransitionError reports that entity in state current rejected event.
// The allowed events are sorted for deterministic messages.
func NewTransitionError(entity, current, event string, allowed []string) *Error {
	sorted := append([]string(nil), allowed...)
	sort.Strings(sorted)
	return &Error{
		Kind:          KindInvalidTransition,
		Message:       fmt.Sprintf("%s cannot %s", entity, event),
		CurrentState:  current,
		AllowedEvents: sorted,
	}
}

// NewRateLimitedError reports a rate-limited dependency with a suggested
// backoff.
func NewRateLimitedError(retryAfter time.Duration, format string, args ...any) *Error {
	return &Error{Kind: KindRateLimited, Message: fmt.Sprintf(format, args...), RetryAfter: retryAfter}
}

// KindOf extracts the Kind from err, or "" when err is not an engine Error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is an engine Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
