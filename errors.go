package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials    = "auth_invalid_credentials"
	TextCodeAccountDeactivated    = "auth_account_deactivated"
	TextCodeAccountNotFound       = "auth_account_not_found"
	TextCodeEmailExists           = "auth_email_exists"
	TextCodeMissingProviderClaims = "auth_missing_provider_claims"
	TextCodePasswordMismatch      = "auth_password_mismatch"
	TextCodePasswordTooShort      = "auth_password_too_short"
	TextCodeMissingCredentials    = "auth_missing_credentials"
	TextCodeNoPasswordSet         = "auth_no_password_set"
	TextCodeResetTokenInvalid     = "auth_reset_token_invalid"
	TextCodeResetTokenUsed        = "auth_reset_token_used"
	TextCodeResetTokenExpired     = "auth_reset_token_expired"
	TextCodeInsufficientRole      = "auth_insufficient_role"
	TextCodeTokenExpired          = "auth_token_expired"
	TextCodeTokenMalformed        = "auth_token_malformed"
	TextCodeConfigInvalid         = "auth_config_invalid"
	TextCodeStoreUnavailable      = "auth_store_unavailable"
)

// ErrInvalidCredentials covers unknown email, missing password credential and
// wrong password alike so callers cannot enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountDeactivated is returned when credentials are valid but the
// account is administratively suspended.
var ErrAccountDeactivated = errors.New("account is deactivated", errors.CategoryAuth).
	WithTextCode(TextCodeAccountDeactivated).
	WithCode(errors.CodeForbidden)

// ErrAccountNotFound is returned when an operation targets an account id
// that does not exist.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailExists is the uniqueness violation for the email column.
var ErrEmailExists = errors.New("account with this email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(errors.CodeConflict)

// ErrMissingProviderClaims is returned when a federated assertion lacks the
// provider subject id or email.
var ErrMissingProviderClaims = errors.New("required user information not received from provider", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingProviderClaims).
	WithCode(errors.CodeBadRequest)

// ErrMissingCredentials rejects empty email or password input.
var ErrMissingCredentials = errors.New("email and password are required", errors.CategoryValidation).
	WithTextCode(TextCodeMissingCredentials).
	WithCode(errors.CodeBadRequest)

// ErrPasswordMismatch rejects a confirmation that differs from the password.
var ErrPasswordMismatch = errors.New("passwords do not match", errors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeBadRequest)

// ErrPasswordTooShort enforces the minimum password length.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters long", errors.CategoryValidation).
	WithTextCode(TextCodePasswordTooShort).
	WithCode(errors.CodeBadRequest)

// ErrNoPasswordSet is returned when a password change targets an account
// without a native credential.
var ErrNoPasswordSet = errors.New("account does not have a password set", errors.CategoryValidation).
	WithTextCode(TextCodeNoPasswordSet).
	WithCode(errors.CodeBadRequest)

// ErrResetTokenInvalid covers unknown and malformed reset tokens.
var ErrResetTokenInvalid = errors.New("invalid reset token or email", errors.CategoryAuth).
	WithTextCode(TextCodeResetTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrResetTokenUsed is returned when a reset token was already consumed.
var ErrResetTokenUsed = errors.New("password reset token has already been used", errors.CategoryConflict).
	WithTextCode(TextCodeResetTokenUsed).
	WithCode(errors.CodeConflict)

// ErrResetTokenExpired is returned when a reset token aged past its window.
var ErrResetTokenExpired = errors.New("password reset token has expired", errors.CategoryValidation).
	WithTextCode(TextCodeResetTokenExpired).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is the validation failure for expired session tokens.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is the uniform rejection for any session token that fails
// signature, structure, issuer, or audience checks.
var ErrTokenMalformed = errors.New("token is malformed or invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrInsufficientRole is returned when a valid bearer lacks the role a
// surface requires.
var ErrInsufficientRole = errors.New("insufficient role for this resource", errors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientRole).
	WithCode(errors.CodeForbidden)

// ErrConfigInvalid is startup-fatal: constructors return it and the process
// must not accept traffic.
var ErrConfigInvalid = errors.New("authentication configuration is invalid", errors.CategoryInternal).
	WithTextCode(TextCodeConfigInvalid).
	WithCode(errors.CodeInternal)

// ErrNoEmptyString rejects empty input to the password hasher.
var ErrNoEmptyString = errors.New("value should not be an empty string", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the verifier's mismatch result.
var ErrMismatchedHashAndPassword = errors.New("hash does not match password", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

func configError(reason string) error {
	return errors.Wrap(ErrConfigInvalid, errors.CategoryInternal, reason).
		WithTextCode(TextCodeConfigInvalid).
		WithCode(errors.CodeInternal)
}

// WrapStoreError marks a persistence failure as retryable for the caller.
// Domain failures pass through untouched.
func WrapStoreError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	return errors.Wrap(err, errors.CategoryInternal, msg).
		WithTextCode(TextCodeStoreUnavailable).
		WithMetadata(map[string]any{"retryable": true})
}

// IsUniqueViolation reports whether err is a storage-level unique constraint
// failure. The store enforces email/federated id uniqueness atomically, so
// this is the signal concurrent writers key their conflict recovery on.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") || // postgres
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "Duplicate entry") // mysql
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
