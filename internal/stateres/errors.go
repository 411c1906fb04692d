package stateres

import (
	"context"
	"errors"
	"fmt"
)

// Error is a fatal resolution failure. Rejected events are not errors; they
// are reported in Result.Rejected.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// EventID identifies the affected event, if any.
	EventID string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes resolution errors.
type ErrorCode string

const (
	// ErrCodeStoreFailure indicates the fetcher failed for a reason other
	// than the event being absent.
	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"

	// ErrCodeCancelled indicates the caller's context ended mid-resolution.
	ErrCodeCancelled ErrorCode = "CANCELLED"

	// ErrCodeMissingStateKey indicates a conflicted event without a state key.
	ErrCodeMissingStateKey ErrorCode = "MISSING_STATE_KEY"

	// ErrCodeCycleDetected tags the warning logged when the auth graph has a
	// cycle. It is never returned.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EventID != "" {
		msg += fmt.Sprintf(" (event=%s)", e.EventID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of a wrapped *Error, or "" for any other error.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsStoreFailure reports whether err aborted resolution because of the store.
func IsStoreFailure(err error) bool {
	return CodeOf(err) == ErrCodeStoreFailure
}

// IsCancelled reports whether err aborted resolution because the caller's
// context ended.
func IsCancelled(err error) bool {
	return CodeOf(err) == ErrCodeCancelled
}

// classify turns an error from a fetch into a resolution error. A finished
// context wins over whatever the store reported.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Code: ErrCodeCancelled, Message: "resolution interrupted", Err: ctxErr}
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Code: ErrCodeStoreFailure, Message: "event fetch failed", Err: err}
}

// checkCtx returns a cancellation error if ctx is done.
func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &Error{Code: ErrCodeCancelled, Message: "resolution interrupted", Err: err}
	}
	return nil
}
