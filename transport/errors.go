package transport

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout           = errors.New("request timeout")
	ErrNetwork           = errors.New("network failure")
	ErrServerRateLimited = errors.New("rate limit exceeded, please slow down")
	ErrResponseTooLarge  = errors.New("response too large")
	ErrRejected          = errors.New("request rejected")
	ErrPinMismatch       = errors.New("certificate pin mismatch")
	// ErrMalformedResponse is a successful status whose body is not a valid envelope.
	ErrMalformedResponse = errors.New("malformed response")
)

// RejectedError is a non-2xx response or an envelope with success=false.
type RejectedError struct {
	Status  int
	Message string
	Code    string
}

func (e *RejectedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("request rejected (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("request rejected (%d): %s", e.Status, e.Message)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}
