package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthenticated = errors.New("not authenticated")

	ErrInvalidRequest = errors.New("invalid request body")
	ErrValidation     = errors.New("validation failed")

	ErrInvalidRepoURL  = errors.New("invalid repository URL, use format https://github.com/owner/repo")
	ErrInvalidDeadline = errors.New("invalid deadline format, use DD/MM/YYYY HH:MM or ISO")
	ErrDeadlinePast    = errors.New("deadline cannot be in the past")
	ErrCompletionType  = errors.New(`invalid completion_type, must be "commit" or "issue"`)

	ErrMissingSignature = errors.New("request is missing signature header")
	ErrInvalidSignature = errors.New("invalid signature, request rejected")
	ErrMissingEvent     = errors.New("request is missing event type header")
	ErrMalformedPayload = errors.New("malformed webhook payload")

	ErrUpstream = errors.New("upstream request failed")
)

// FieldError reports a single invalid input field. It matches ErrValidation
// under errors.Is.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
func (e *FieldError) Is(target error) bool { return target == ErrValidation }

// Invalid wraps one of the input sentinels so it is reported as a validation
// failure while keeping its own message.
func Invalid(err error) error {
	return &invalidError{err: err}
}

type invalidError struct{ err error }

func (e *invalidError) Error() string        { return e.err.Error() }
func (e *invalidError) Unwrap() error        { return e.err }
func (e *invalidError) Is(target error) bool { return target == ErrValidation }
