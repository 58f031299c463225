package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a NetworkOrServerError: either the request never produced a
// response (StatusCode == 0, Err set) or the backend answered non-2xx.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Body       string // first bytes of the response body, for diagnostics
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 || e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: request failed with status code %d", e.Method, e.URL, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusNotFound
	}
	return false
}

// IsTransport reports whether err happened before any response was read.
func IsTransport(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.StatusCode == 0
	}
	return false
}
