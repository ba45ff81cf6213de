package cleverbot

import (
	"errors"
	"fmt"
)

var (
	// ErrBanned signals that the remote service has blocked this client.
	// It is terminal: the retry loop never retries a ban.
	ErrBanned = errors.New("cleverbot: access denied by remote service")

	// ErrExhaustedRetries signals that every attempt failed.
	// Match with errors.Is; the concrete error is *ExhaustedError.
	ErrExhaustedRetries = errors.New("cleverbot: all retry attempts failed")
)

// ConfigError reports a rejected configuration value.
// No part of the containing update is applied when one is returned.
type ConfigError struct {
	Field      string
	Constraint string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cleverbot: invalid configuration: %s must be %s", e.Field, e.Constraint)
}

// CookieFetchError reports a failed cookie bootstrap request
type CookieFetchError struct {
	Status int
	Cause  error
}

func (e *CookieFetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cleverbot: cookie bootstrap failed: %v", e.Cause)
	}
	return fmt.Sprintf("cleverbot: cookie bootstrap failed: status %d", e.Status)
}

func (e *CookieFetchError) Unwrap() error {
	return e.Cause
}

// RemoteCallError reports a failed exchange round-trip: a network error,
// a non-2xx status, or an empty response body.
type RemoteCallError struct {
	Status int
	Cause  error
}

func (e *RemoteCallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cleverbot: exchange failed: %v", e.Cause)
	}
	return fmt.Sprintf("cleverbot: exchange failed: status %d", e.Status)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Cause
}

// MalformedResponseError reports a reply that did not carry the three
// carriage-return separated segments the protocol requires
type MalformedResponseError struct {
	Segments int
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("cleverbot: malformed response: got %d segments, want at least 3", e.Segments)
}

// ExhaustedError is returned when every attempt failed.
// It matches ErrExhaustedRetries via errors.Is and unwraps to the last
// attempt's error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("cleverbot: request failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhaustedRetries
}
