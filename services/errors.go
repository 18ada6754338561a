// ABOUTME: Typed failure results for session and gallery operations
// ABOUTME: One Error type per failure kind, matched with errors.Is against sentinels

package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed operation.
type ErrorKind string

const (
	KindNotAuthenticated ErrorKind = "not_authenticated" // no access token present
	KindNoRefreshToken   ErrorKind = "no_refresh_token"  // no refresh token present
	KindRefreshFailed    ErrorKind = "refresh_failed"    // backend rejected the refresh
	KindFetchFailed      ErrorKind = "fetch_failed"      // non-OK status on a read
	KindConnectionFailed ErrorKind = "connection_failed" // transport-level failure
	KindValidationFailed ErrorKind = "validation_failed" // backend 4xx with a detail message
)

// Error is the failure result of a backend-facing operation.
// Message is safe to show to the user.
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int   // HTTP status when the backend answered, 0 otherwise
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrFetchFailed) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotAuthenticated = &Error{Kind: KindNotAuthenticated, Message: "Not authenticated"}
	ErrNoRefreshToken   = &Error{Kind: KindNoRefreshToken, Message: "No refresh token"}
	ErrRefreshFailed    = &Error{Kind: KindRefreshFailed, Message: "Refresh failed"}
	ErrFetchFailed      = &Error{Kind: KindFetchFailed, Message: "Request failed"}
	ErrConnectionFailed = &Error{Kind: KindConnectionFailed, Message: "Connection failed"}
	ErrValidationFailed = &Error{Kind: KindValidationFailed, Message: "Invalid request"}
)

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusOf returns the backend HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Something went wrong"
}

// withMessage returns a copy of err's *Error with a new message for the given kinds.
// Other errors pass through.
func withMessage(err error, message string, kinds ...ErrorKind) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	for _, k := range kinds {
		if e.Kind == k {
			out := *e
			out.Message = message
			return &out
		}
	}
	return err
}

// rekind turns any non-connection failure into kind with message,
// keeping Status and cause.
func rekind(err error, kind ErrorKind, message string) error {
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: kind, Message: message, Err: err}
	}
	if e.Kind == KindConnectionFailed {
		return err
	}
	return &Error{Kind: kind, Message: message, Status: e.Status, Err: e.Err}
}
