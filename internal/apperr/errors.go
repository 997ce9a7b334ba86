package apperr

import (
	"errors"
	"fmt"
)

// ValidationError is a user-correctable input problem. It blocks the
// current action and leaves state unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for field.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RecoverableServiceError wraps a failure of a non-critical collaborator
// (tax quote, vehicle catalog). Callers degrade to a fallback value.
type RecoverableServiceError struct {
	Service string
	Err     error
}

func (e *RecoverableServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *RecoverableServiceError) Unwrap() error { return e.Err }

// Recoverable wraps err as a RecoverableServiceError.
func Recoverable(service string, err error) error {
	if err == nil {
		return nil
	}
	return &RecoverableServiceError{Service: service, Err: err}
}

// SubmissionError reports a failed order or event-update POST. The caller
// stays on the current step so the user can retry.
type SubmissionError struct {
	Target string
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s: %v", e.Target, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Submission wraps err as a SubmissionError.
func Submission(target string, err error) error {
	if err == nil {
		return nil
	}
	return &SubmissionError{Target: target, Err: err}
}

// CompilationError is raised by the recurrence builder for malformed input
// other than an end before the anchor.
type CompilationError struct {
	Reason string
	Err    error
}

func (e *CompilationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compile recurrence: %s: %v", e.Reason, e.Err)
	}
	return "compile recurrence: " + e.Reason
}

func (e *CompilationError) Unwrap() error { return e.Err }

// Compilation builds a CompilationError.
func Compilation(reason string, err error) error {
	return &CompilationError{Reason: reason, Err: err}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsSubmission(err error) bool {
	var target *SubmissionError
	return errors.As(err, &target)
}

func IsCompilation(err error) bool {
	var target *CompilationError
	return errors.As(err, &target)
}

func IsRecoverable(err error) bool {
	var target *RecoverableServiceError
	return errors.As(err, &target)
}
