package classify

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a response body cannot be decoded.
var ErrMalformedResponse = errors.New("classify: malformed response")

// APIError is a non-2xx answer, or a 2xx answer carrying an "error" field.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("classify: backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("classify: backend returned %d: %s", e.StatusCode, e.Message)
}

// IsServerError returns true for HTTP 5xx.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
