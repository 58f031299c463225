package blogstore

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestInFlight is returned by a next-page fetch while another
	// list fetch holds the slot. No request is sent.
	ErrRequestInFlight = errors.New("a list fetch is already in flight")

	// ErrSuperseded is returned when a newer first-page fetch took the slot
	// before this fetch completed. Its result was discarded.
	ErrSuperseded = errors.New("superseded by a newer fetch")

	// ErrStopped is returned once the Run loop has exited.
	ErrStopped = errors.New("blog store stopped")
)

// OpError reports a failed store operation.
type OpError struct {
	Op        Kind
	RequestID string
	Err       error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s (request=%s): %v", e.Op, e.RequestID, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// IsSuperseded reports whether err is a dropped fetch result.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}

// IsInFlight reports whether err is a refused next-page fetch.
func IsInFlight(err error) bool {
	return errors.Is(err, ErrRequestInFlight)
}
