package domain

import (
	"fmt"
	"strings"
	"time"
)

// LocationFormatError reports input that matched a recognized location shape
// but failed validation, such as an out-of-range coordinate. Its message is
// guidance text safe to show to the sender.
type LocationFormatError struct {
	// Message is the user-displayable description of the problem
	Message string
}

// Error implements the error interface.
func (e *LocationFormatError) Error() string {
	return e.Message
}

// LocationLookupError reports a syntactically valid three-word address that
// the remote resolution service could not turn into coordinates, whether
// through timeout, an upstream error, or a malformed response. Its message is
// safe to show to the sender; the underlying cause is preserved for logs.
type LocationLookupError struct {
	// Message is the user-displayable description of the failure
	Message string

	// Cause wraps the underlying error if applicable
	Cause error
}

// Error implements the error interface.
func (e *LocationLookupError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *LocationLookupError) Unwrap() error {
	return e.Cause
}

// ProviderTimeoutError reports that one weather provider's request exceeded
// its bounded timeout. The message deliberately omits the provider name; the
// manager prefixes it when aggregating failures.
type ProviderTimeoutError struct {
	// Provider is the name of the provider that timed out
	Provider string

	// Timeout is the bound that elapsed
	Timeout time.Duration
}

// Error implements the error interface.
func (e *ProviderTimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s", e.Timeout)
}

// ProviderResponseError reports a non-success upstream response or a
// structurally invalid payload from one weather provider.
type ProviderResponseError struct {
	// Provider is the name of the provider that answered
	Provider string

	// Status is the upstream HTTP status code
	Status int

	// Detail describes what was wrong with the response
	Detail string
}

// Error implements the error interface.
func (e *ProviderResponseError) Error() string {
	return fmt.Sprintf("unexpected response (status %d): %s", e.Status, e.Detail)
}

// ProviderGenericError reports any other transport or parse failure from one
// weather provider.
type ProviderGenericError struct {
	// Provider is the name of the provider that failed
	Provider string

	// Detail describes the failure
	Detail string

	// Cause wraps the underlying error if applicable
	Cause error
}

// Error implements the error interface.
func (e *ProviderGenericError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Cause)
	}

	return e.Detail
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *ProviderGenericError) Unwrap() error {
	return e.Cause
}

// ProviderFailure pairs a provider name with the error it produced during one
// failover pass.
type ProviderFailure struct {
	Provider string
	Err      error
}

// AllProvidersFailedError is returned by the provider manager when every
// registered, available provider failed. Its message lists each recorded
// failure as "<provider>: <message>" joined by "; ". Providers skipped
// because they reported unavailable are not listed since no error was
// recorded for them.
type AllProvidersFailedError struct {
	Failures []ProviderFailure
}

// Error implements the error interface.
func (e *AllProvidersFailedError) Error() string {
	if len(e.Failures) == 0 {
		return "no weather providers were available"
	}

	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Provider + ": " + f.Err.Error()
	}

	return strings.Join(parts, "; ")
}

// DeliveryError reports a failure to transmit an outbound reply through the
// message gateway.
type DeliveryError struct {
	// Detail describes the transmission failure
	Detail string

	// Cause wraps the underlying error if applicable
	Cause error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("delivery failed: %s: %v", e.Detail, e.Cause)
	}

	return fmt.Sprintf("delivery failed: %s", e.Detail)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}
