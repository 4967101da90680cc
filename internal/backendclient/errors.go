package backendclient

import (
	"errors"
	"fmt"
)

var ErrMalformedResponse = errors.New("malformed backend response")

// ResponseError is returned when the backend answers with a non-2xx status
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend responded with status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the backend itself failed, as opposed to rejecting the request
func (e *ResponseError) Temporary() bool {
	return e.StatusCode >= 500
}
