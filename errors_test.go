package auth_test

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/vitaldesk/go-auth"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Structured token expired error",
			err:      auth.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "Legacy token expired error (string match)",
			err:      errors.New("some wrapper: token is expired"),
			expected: true,
		},
		{
			name:     "Different legacy error",
			err:      errors.New("invalid token"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := auth.IsTokenExpiredError(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Legacy malformed error (string match)",
			err:      errors.New("token is malformed"),
			expected: true,
		},
		{
			name:     "Legacy missing JWT error (string match)",
			err:      errors.New("missing or malformed JWT"),
			expected: true,
		},
		{
			name:     "Different legacy error",
			err:      errors.New("invalid token"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := auth.IsMalformedError(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "sqlite",
			err:      fmt.Errorf("UNIQUE constraint failed: users.email"),
			expected: true,
		},
		{
			name:     "postgres message",
			err:      fmt.Errorf(`duplicate key value violates unique constraint "users_email_key"`),
			expected: true,
		},
		{
			name:     "postgres sqlstate",
			err:      fmt.Errorf("ERROR: something (SQLSTATE 23505)"),
			expected: true,
		},
		{
			name:     "mysql",
			err:      fmt.Errorf("Error 1062: Duplicate entry 'a@example.com' for key 'email'"),
			expected: true,
		},
		{
			name:     "unrelated error",
			err:      fmt.Errorf("connection refused"),
			expected: false,
		},
		{
			name:     "nil",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsUniqueViolation(tt.err))
		})
	}
}

func TestStructuredErrorProperties(t *testing.T) {
	t.Run("ErrInvalidCredentials", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrInvalidCredentials.Category)
		assert.Equal(t, auth.TextCodeInvalidCredentials, auth.ErrInvalidCredentials.TextCode)
		assert.Equal(t, "invalid email or password", auth.ErrInvalidCredentials.Message)
	})

	t.Run("ErrAccountDeactivated", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrAccountDeactivated.Category)
		assert.Equal(t, auth.TextCodeAccountDeactivated, auth.ErrAccountDeactivated.TextCode)
	})

	t.Run("ErrAccountNotFound", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryNotFound, auth.ErrAccountNotFound.Category)
		assert.Equal(t, auth.TextCodeAccountNotFound, auth.ErrAccountNotFound.TextCode)
	})

	t.Run("ErrEmailExists", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryConflict, auth.ErrEmailExists.Category)
		assert.Equal(t, auth.TextCodeEmailExists, auth.ErrEmailExists.TextCode)
	})

	t.Run("ErrMissingProviderClaims", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryBadInput, auth.ErrMissingProviderClaims.Category)
		assert.Equal(t, auth.TextCodeMissingProviderClaims, auth.ErrMissingProviderClaims.TextCode)
	})

	t.Run("ErrResetTokenUsed", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryConflict, auth.ErrResetTokenUsed.Category)
		assert.Equal(t, auth.TextCodeResetTokenUsed, auth.ErrResetTokenUsed.TextCode)
	})

	t.Run("ErrTokenExpired", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrTokenExpired.Category)
		assert.Equal(t, auth.TextCodeTokenExpired, auth.ErrTokenExpired.TextCode)
	})

	t.Run("ErrNoEmptyString", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryValidation, auth.ErrNoEmptyString.Category)
	})
}

func TestWrapStoreError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, auth.WrapStoreError(nil, "noop"))
	})

	t.Run("rich errors pass through untouched", func(t *testing.T) {
		err := auth.WrapStoreError(auth.ErrAccountNotFound, "lookup failed")
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})

	t.Run("raw errors become retryable internal errors", func(t *testing.T) {
		err := auth.WrapStoreError(fmt.Errorf("connection refused"), "lookup failed")

		var richErr *goerrors.Error
		assert.ErrorAs(t, err, &richErr)
		assert.Equal(t, goerrors.CategoryInternal, richErr.Category)
		assert.Equal(t, auth.TextCodeStoreUnavailable, richErr.TextCode)
		assert.Equal(t, true, richErr.Metadata["retryable"])
	})
}

func TestConfigValidation(t *testing.T) {
	err := auth.ValidateConfig(nil)
	assert.ErrorIs(t, err, auth.ErrConfigInvalid)

	err = auth.ValidateConfig(auth.SimpleConfig{
		SigningKey:    "key",
		Issuer:        "iss",
		Audience:      []string{"aud"},
		ExpiryMinutes: 60,
	})
	assert.NoError(t, err)
}
