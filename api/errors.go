package api

import "fmt"

const (
	// FallbackPredictMessage is used when a failed predict response carries no usable detail.
	FallbackPredictMessage = "Failed to get prediction"
	// UnreachableMessage is used when the request never got an HTTP response.
	UnreachableMessage = "Unable to reach the classification service"
	// HealthFailureMessage is used for any non-success health probe.
	HealthFailureMessage = "Backend is not responding"
)

// RequestError reports a failed round trip: either the transport failed or
// the server answered with a non-success status.
type RequestError struct {
	Status  int // zero when no response was received
	Message string
	Err     error
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return e.Err }

// ParseError reports a success response whose body could not be used.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid prediction response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid prediction response: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }
