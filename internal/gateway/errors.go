package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestInFlight is returned when an executor is asked to start a
	// second request before the first one completed.
	ErrRequestInFlight = errors.New("gateway: request already in flight")

	// ErrCircuitOpen is returned without touching the network when the
	// target host has failed repeatedly. It counts as recoverable.
	ErrCircuitOpen = errors.New("gateway: circuit open for host")
)

// BuildError reports a request that could not be constructed, typically
// because a mandatory link is absent. It is never retried.
type BuildError struct {
	Request string
	Reason  string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("gateway: build %s request: %s", e.Request, e.Reason)
}

// StatusError is returned by a Connection for responses outside 200-399.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: unexpected HTTP status %d", e.StatusCode)
}

// NetworkingError is synthesized when a non-OK response body is not a
// gateway ErrorInfo.
type NetworkingError struct {
	Description string
	StatusCode  int
	Body        string
}

func (e *NetworkingError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Description, e.StatusCode)
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.Description, e.StatusCode, e.Body)
}

// DecodeError wraps a response body that did not match the expected type.
type DecodeError struct {
	Request string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("gateway: decode %s response: %v", e.Request, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
