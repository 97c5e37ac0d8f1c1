package provider

import (
	"fmt"
)

// ProviderError captures a non-2xx upstream response.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// HTTPStatusCode returns the upstream status.
func (e *ProviderError) HTTPStatusCode() int {
	return e.StatusCode
}

// MalformedResponseError is returned when the upstream answered 2xx but the
// reply could not be found at the expected path.
type MalformedResponseError struct {
	Provider string
	Path     string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed response at %s: %v", e.Provider, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: malformed response: %s missing", e.Provider, e.Path)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a credential or endpoint that is required by a
// provider but was not configured. It surfaces on first use, not at start-up.
type ConfigurationError struct {
	Provider string
	Setting  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s is not configured", e.Provider, e.Setting)
}

// TransportError wraps a failure to reach the upstream at all.
type TransportError struct {
	Provider string
	Err      error
	timeout  bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err, classifying deadline failures as timeouts.
func NewTransportError(provider string, err error) *TransportError {
	return &TransportError{Provider: provider, Err: err, timeout: isTimeout(err)}
}

// Timeout reports whether the call was cut off by a deadline.
func (e *TransportError) Timeout() bool {
	return e.timeout
}

// Malformed builds a MalformedResponseError for a missing reply path.
func Malformed(provider, path string) error {
	return &MalformedResponseError{Provider: provider, Path: path}
}
