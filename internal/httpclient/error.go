package httpclient

import (
	goerrors "errors"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
)

// Error represents an HTTP client error
type Error struct {
	Cause      *errors.Error
	StatusCode int
	Response   []byte
}

func (e *Error) Unwrap() error {
	return e.Cause.Unwrap()
}

func (e *Error) Error() string {
	return e.Cause.Error()
}

// NewError creates a new HTTP client error
func NewError(statusCode int, response []byte) *Error {
	return &Error{
		Cause:      errors.New("http_client_error", "http client error"),
		StatusCode: statusCode,
		Response:   response,
	}
}

// IsHTTPError checks if an error is an HTTP client error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if goerrors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
