package brewy_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	brewy "github.com/code-brew-house/brewy-backend-sub001"
)

func TestIsTokenExpiredError(t *testing.T) {
	assert.True(t, brewy.IsTokenExpiredError(brewy.ErrTokenExpired))
	assert.True(t, brewy.IsTokenExpiredError(fmt.Errorf("request failed: %w", brewy.ErrTokenExpired)))

	// plain errors match on message as a fallback
	assert.True(t, brewy.IsTokenExpiredError(errors.New("token is expired")))

	assert.False(t, brewy.IsTokenExpiredError(nil))
	assert.False(t, brewy.IsTokenExpiredError(brewy.ErrTokenMalformed))
	assert.False(t, brewy.IsTokenExpiredError(errors.New("something else")))
}

func TestIsMalformedError(t *testing.T) {
	assert.True(t, brewy.IsMalformedError(brewy.ErrTokenMalformed))
	assert.True(t, brewy.IsMalformedError(fmt.Errorf("request failed: %w", brewy.ErrTokenMalformed)))
	assert.True(t, brewy.IsMalformedError(errors.New("token is malformed")))
	assert.True(t, brewy.IsMalformedError(errors.New("missing or malformed JWT")))

	assert.False(t, brewy.IsMalformedError(nil))
	assert.False(t, brewy.IsMalformedError(brewy.ErrTokenExpired))
}

func TestIsInvalidCredentials(t *testing.T) {
	assert.True(t, brewy.IsInvalidCredentials(brewy.ErrInvalidCredentials))
	assert.False(t, brewy.IsInvalidCredentials(brewy.ErrAccountLocked))
	assert.False(t, brewy.IsInvalidCredentials(nil))
}

func TestIsAccountLocked(t *testing.T) {
	assert.True(t, brewy.IsAccountLocked(brewy.ErrAccountLocked))
	assert.False(t, brewy.IsAccountLocked(brewy.ErrInvalidCredentials))
	assert.False(t, brewy.IsAccountLocked(nil))
}
