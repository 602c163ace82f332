package client

import (
	"fmt"
	"time"
)

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is returned for missing credentials and 401/403 responses.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return "auth error: " + e.Message
}

// ValidationError covers rejected input and suggestion cooldowns.
// RetryAfter is set when the request may be repeated after a wait.
type ValidationError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *ValidationError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry in %s)", e.Message, e.RetryAfter.Round(time.Second))
	}
	return e.Message
}

// BackendError is any other non-2xx response.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Message)
}
