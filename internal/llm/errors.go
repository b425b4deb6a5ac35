package llm

import (
	"errors"
	"fmt"
)

// Provider error taxonomy. Each failure mode gets its own type so callers
// can classify with errors.As instead of matching message text.

// APIError means the vendor rejected the request. Never retried.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s", e.Message)
}

// HTTPError is a transport-level failure: no usable response was received.
// Never retried by the provider.
type HTTPError struct {
	Err error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http transport error: %v", e.Err)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// AuthError means the credential was rejected (HTTP 401). Never retried.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// RetriesExhaustedError means transient errors persisted past the retry
// budget.
type RetriesExhaustedError struct {
	Attempts int
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts", e.Attempts)
}

// ParseResponseError means the provider returned success but the body could
// not be decoded.
type ParseResponseError struct {
	Message string
}

func (e *ParseResponseError) Error() string {
	return fmt.Sprintf("malformed provider response: %s", e.Message)
}

// ErrNoProvider is returned by Discover when neither configuration nor the
// environment yields a usable backend.
var ErrNoProvider = errors.New("no LLM provider configured (run 'git-chronicle setup' or set ANTHROPIC_API_KEY)")

// IsAuthError reports whether err is a credential rejection.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
