package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinel kinds every error raised by the core is classified against.
// Handlers and the HTTP surface switch on these via errors.Is /
// errors.Mark, never on string matching.
var (
	// ErrValidation - the request or payload itself is malformed; retrying
	// identically will never succeed.
	ErrValidation = errors.New("validation error")

	// ErrNotFound - the referenced entity does not exist in this tenant's
	// scope.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict - a uniqueness constraint or state-machine rule rejected
	// the operation (duplicate idempotency key with a different payload,
	// illegal status transition, optimistic-lock version mismatch).
	ErrConflict = errors.New("conflict")

	// ErrTransient - the operation failed for a reason that may clear on
	// its own (provider timeout, deadlock, connection reset). The
	// dispatcher reschedules tasks that fail with this kind.
	ErrTransient = errors.New("transient failure")

	// ErrTerminal - the operation failed for a reason retrying will never
	// fix (card permanently declined, provider account closed). The
	// dispatcher marks the task failed without further retries.
	ErrTerminal = errors.New("terminal failure")

	// ErrPermissionDenied - the caller is not authorized for this tenant
	// or operation.
	ErrPermissionDenied = errors.New("permission denied")
)

// Error represents a domain error.
type Error struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*Error)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// New creates a new Error
func New(code string, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code string, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithOp adds operation information to an error
func WithOp(err error, op string) *Error {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		return &Error{
			Message: err.Error(),
			Op:      op,
			Err:     err,
		}
	}

	e.Op = op
	return e
}

// IsValidation reports whether err is classified as a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether err is classified as a not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is classified as a conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsTransient reports whether err is classified as transient - the
// dispatcher should back off and retry the task that produced it.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsTerminal reports whether err is classified as terminal - the
// dispatcher should stop retrying the task that produced it.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrTerminal)
}

// IsPermissionDenied reports whether err is classified as a permission
// failure.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// HTTPStatusFromErr maps a sentinel kind to the status code the admin API
// surface responds with. An error marked against none of the sentinels
// is treated as an unclassified internal failure.
func HTTPStatusFromErr(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTerminal):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
