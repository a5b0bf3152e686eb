package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by service packages. Handlers map them to HTTP
// statuses with StatusCode; services wrap them with %w so callers can use
// errors.Is across layers.
var (
	// ErrNotFound is returned when a referenced submission, workflow or
	// step does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when the actor's division does not own the
	// active step, or the submission is already terminal.
	ErrForbidden = errors.New("action not permitted")

	// ErrNoWorkflow is returned when no active workflow is configured for
	// the actor's division. Requires admin setup, not retryable.
	ErrNoWorkflow = errors.New("no active workflow configured for division")

	// ErrNoNextStep is returned when a forward is requested on the final
	// step. User-facing and non-fatal.
	ErrNoNextStep = errors.New("submission is already at its final step")

	// ErrConflict is returned when an optimistic-lock check fails because
	// a concurrent action committed first. Retryable: the caller should
	// re-read and re-check ownership/terminal state.
	ErrConflict = errors.New("submission was modified concurrently")
)

// ValidationError carries field-level messages for malformed input. Always
// recoverable by resubmission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d invalid field(s)", len(e.Fields))
}

// NewValidation builds a ValidationError for a single field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StatusCode maps an error to the HTTP status handlers should respond with.
func StatusCode(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNoWorkflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNoNextStep):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-visible message for an error. Internal failures
// collapse to a generic retry hint; taxonomy errors keep their reason.
func Message(err error) string {
	if StatusCode(err) == http.StatusInternalServerError {
		return "something went wrong, please try again"
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		for _, msg := range ve.Fields {
			return msg
		}
	}
	return err.Error()
}
