package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProviderErrorMessages(t *testing.T) {
	timeoutErr := &ProviderTimeoutError{Provider: "openweather", Timeout: 5 * time.Second}
	assert.Equal(t, "request timed out after 5s", timeoutErr.Error())

	responseErr := &ProviderResponseError{Provider: "weatherapi", Status: 502, Detail: "bad gateway"}
	assert.Equal(t, "unexpected response (status 502): bad gateway", responseErr.Error())

	genericErr := &ProviderGenericError{Provider: "openmeteo", Detail: "connection refused"}
	assert.Equal(t, "connection refused", genericErr.Error())

	cause := errors.New("dial tcp: no route to host")
	wrapped := &ProviderGenericError{Provider: "openmeteo", Detail: "forecast request failed", Cause: cause}
	assert.Contains(t, wrapped.Error(), "forecast request failed")
	assert.ErrorIs(t, wrapped, cause)
}

func TestAllProvidersFailedErrorMessage(t *testing.T) {
	err := &AllProvidersFailedError{
		Failures: []ProviderFailure{
			{Provider: "openweather", Err: &ProviderTimeoutError{Provider: "openweather", Timeout: 5 * time.Second}},
			{Provider: "weatherapi", Err: &ProviderResponseError{Provider: "weatherapi", Status: 500, Detail: "internal error"}},
		},
	}

	msg := err.Error()

	assert.Contains(t, msg, "openweather: request timed out after 5s")
	assert.Contains(t, msg, "weatherapi: unexpected response (status 500): internal error")
	assert.Equal(t, "openweather: request timed out after 5s; weatherapi: unexpected response (status 500): internal error", msg)
}

func TestAllProvidersFailedErrorEmpty(t *testing.T) {
	err := &AllProvidersFailedError{}

	assert.Equal(t, "no weather providers were available", err.Error())
}

func TestLocationErrorsAreUserDisplayable(t *testing.T) {
	formatErr := &LocationFormatError{Message: "latitude must be between -90 and 90"}
	assert.Equal(t, "latitude must be between -90 and 90", formatErr.Error())

	cause := errors.New("context deadline exceeded")
	lookupErr := &LocationLookupError{Message: "the three word address lookup timed out", Cause: cause}
	assert.Equal(t, "the three word address lookup timed out", lookupErr.Error())
	assert.ErrorIs(t, lookupErr, cause)
}

func TestDeliveryError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &DeliveryError{Detail: "gateway rejected message", Cause: cause}

	assert.Contains(t, err.Error(), "delivery failed")
	assert.Contains(t, err.Error(), "gateway rejected message")
	assert.ErrorIs(t, err, cause)
}
