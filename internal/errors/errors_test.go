package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeNotFound, "Stream not found")
	assert.Equal(t, "NOT_FOUND: Stream not found", err.Error())

	wrapped := Wrap(ErrCodeDatabase, "Database error", errors.New("connection refused"))
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Database(cause)

	assert.True(t, errors.Is(err, cause))
}

func TestAsAppError(t *testing.T) {
	appErr, ok := AsAppError(NotFound("Stream"))
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, appErr.Code)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)

	// Survives fmt wrapping.
	wrapped := fmt.Errorf("handler: %w", PaymentNotPaid())
	appErr, ok = AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodePaymentNotPaid, appErr.Code)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeConflict, GetCode(New(ErrCodeConflict, "busy")))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
}

func TestWithDetails(t *testing.T) {
	devices := []string{"sess-1"}
	err := New(ErrCodeConflict, "Another device is streaming").WithDetails(devices)
	assert.Equal(t, devices, err.Details.([]string))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidMagicLink, InvalidMagicLink().Code)
	assert.Equal(t, ErrCodeMagicLinkExpired, MagicLinkExpired().Code)
	assert.Equal(t, ErrCodeRateLimitExceeded, RateLimitExceeded().Code)
	assert.Equal(t, ErrCodeInvalidSignature, InvalidSignature().Code)
	assert.Equal(t, "Stream not found", NotFound("Stream").Message)
	assert.Equal(t, "Invalid reason: unknown close reason", InvalidInput("reason", "unknown close reason").Message)
}
