package common

import (
	"fmt"
	"strconv"
)

// Kind classifies a failure for retry and reporting purposes.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindRateLimit  Kind = "rate_limit"
	KindClient     Kind = "client"
	KindServer     Kind = "server"
	KindValidation Kind = "validation"
	KindUnknown    Kind = "unknown"
)

// NetworkError is a transport failure: timeout, refused connection, lost link.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("network error: %v", e.Err)
	}
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RateLimitError reports a 429-style rejection. WaitSeconds is zero when the
// remote did not say how long to back off; the message may still carry it.
type RateLimitError struct {
	WaitSeconds int
	Message     string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return "rate limited: " + e.Message
	}
	if e.WaitSeconds > 0 {
		return "rate limited: Retry-After: " + strconv.Itoa(e.WaitSeconds)
	}
	return "rate limited"
}

// ClientError is a 4xx-style rejection. It is never retried.
type ClientError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.StatusCode, e.Message)
}

func (e *ClientError) Unwrap() error { return e.Err }

// ServerError is a 5xx-style failure of the remote store.
type ServerError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

func (e *ServerError) Unwrap() error { return e.Err }

// ValidationError rejects local input before it reaches the mutation queue.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ExhaustedError is returned once every retry attempt has failed. It keeps
// the kind of the last failure and unwraps to it.
type ExhaustedError struct {
	Attempts int
	Kind     Kind
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts (%s): %v", e.Attempts, e.Kind, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
