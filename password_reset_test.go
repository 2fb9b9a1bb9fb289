package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitaldesk/go-auth"
)

func TestResetTokenExpired(t *testing.T) {
	tests := []struct {
		name        string
		requestedAt time.Time
		expired     bool
	}{
		{"just requested", time.Now(), false},
		{"inside the window", time.Now().Add(-23 * time.Hour), false},
		{"past the window", time.Now().Add(-25 * time.Hour), true},
		{"long forgotten", time.Now().Add(-30 * 24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, auth.ResetTokenExpired(tt.requestedAt))
		})
	}
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("creates reset record and notifies the mailer", func(t *testing.T) {
		auther, repo := newTestAuthenticator(t, newTestDB(t))
		sink := &capturingSink{}
		mailer := &capturingMailer{}
		auther.WithActivitySink(sink).WithMailer(mailer)

		registerAccount(t, auther, "forgot@example.com", "secretword1")

		err := auther.ForgotPassword(ctx, "forgot@example.com")
		require.NoError(t, err)

		require.Len(t, mailer.emails, 1)
		assert.Equal(t, "forgot@example.com", mailer.emails[0])
		require.Len(t, mailer.tokens, 1)

		reset, err := repo.PasswordResets().GetByID(ctx, mailer.tokens[0])
		require.NoError(t, err)
		assert.Equal(t, auth.ResetRequestedStatus, reset.Status)
		assert.Equal(t, "forgot@example.com", reset.Email)

		assert.True(t, sink.HasEvent(auth.ActivityEventPasswordResetRequest))
	})

	t.Run("masks unknown email", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))
		mailer := &capturingMailer{}
		auther.WithMailer(mailer)

		err := auther.ForgotPassword(ctx, "nobody@example.com")

		assert.NoError(t, err)
		assert.Empty(t, mailer.emails)
	})

	t.Run("rejects empty email", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))

		err := auther.ForgotPassword(ctx, "")
		assert.ErrorIs(t, err, auth.ErrMissingCredentials)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()

	startReset := func(t *testing.T, auther *auth.Auther, email string) string {
		t.Helper()
		mailer := &capturingMailer{}
		auther.WithMailer(mailer)
		require.NoError(t, auther.ForgotPassword(ctx, email))
		require.Len(t, mailer.tokens, 1)
		return mailer.tokens[0]
	}

	t.Run("full flow replaces credential and verifies email", func(t *testing.T) {
		auther, repo := newTestAuthenticator(t, newTestDB(t))
		sink := &capturingSink{}
		auther.WithActivitySink(sink)

		registerAccount(t, auther, "reset@example.com", "secretword1")
		token := startReset(t, auther, "reset@example.com")

		result, err := auther.ResetPassword(ctx, auth.ResetPasswordRequest{
			Email:              "reset@example.com",
			ResetToken:         token,
			NewPassword:        "brandnewword",
			ConfirmNewPassword: "brandnewword",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)

		_, err = auther.Login(ctx, "reset@example.com", "secretword1")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		_, err = auther.Login(ctx, "reset@example.com", "brandnewword")
		assert.NoError(t, err)

		// following the mailed link proves control of the address
		user, err := repo.Users().GetByEmail(ctx, "reset@example.com")
		require.NoError(t, err)
		assert.True(t, user.EmailValidated)

		reset, err := repo.PasswordResets().GetByID(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, auth.ResetChangedStatus, reset.Status)
		assert.NotNil(t, reset.ResetedAt)

		assert.True(t, sink.HasEvent(auth.ActivityEventPasswordResetSuccess))
	})

	t.Run("rejects reused token", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))

		registerAccount(t, auther, "reuse@example.com", "secretword1")
		token := startReset(t, auther, "reuse@example.com")

		_, err := auther.ResetPassword(ctx, auth.ResetPasswordRequest{
			Email:              "reuse@example.com",
			ResetToken:         token,
			NewPassword:        "brandnewword",
			ConfirmNewPassword: "brandnewword",
		})
		require.NoError(t, err)

		_, err = auther.ResetPassword(ctx, auth.ResetPasswordRequest{
			Email:              "reuse@example.com",
			ResetToken:         token,
			NewPassword:        "anothernewword",
			ConfirmNewPassword: "anothernewword",
		})
		assert.ErrorIs(t, err, auth.ErrResetTokenUsed)
	})

	t.Run("rejects unknown token", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))

		registerAccount(t, auther, "unknown-token@example.com", "secretword1")

		_, err := auther.ResetPassword(ctx, auth.ResetPasswordRequest{
			Email:              "unknown-token@example.com",
			ResetToken:         uuid.NewString(),
			NewPassword:        "brandnewword",
			ConfirmNewPassword: "brandnewword",
		})
		assert.ErrorIs(t, err, auth.ErrResetTokenInvalid)
	})

	t.Run("rejects token mailed to a different address", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))

		registerAccount(t, auther, "owner@example.com", "secretword1")
		registerAccount(t, auther, "attacker@example.com", "secretword1")
		token := startReset(t, auther, "owner@example.com")

		_, err := auther.ResetPassword(ctx, auth.ResetPasswordRequest{
			Email:              "attacker@example.com",
			ResetToken:         token,
			NewPassword:        "brandnewword",
			ConfirmNewPassword: "brandnewword",
		})
		assert.ErrorIs(t, err, auth.ErrResetTokenInvalid)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		auther, repo := newTestAuthenticator(t, newTestDB(t))

		result := registerAccount(t, auther, "stale@example.com", "secretword1")
		accountID := mustUUID(t, result.User.ID)

		old := time.Now().Add(-25 * time.Hour)
		reset := &auth.PasswordReset{
			ID:        uuid.New(),
			UserID:    &accountID,
			Email:     "stale@example.com",
			Status:    auth.ResetRequestedStatus,
			CreatedAt: &old,
		}
		_, err := repo.PasswordResets().Create(context.Background(), reset)
		require.NoError(t, err)

		_, err = auther.ResetPassword(ctx, auth.ResetPasswordRequest{
			Email:              "stale@example.com",
			ResetToken:         reset.ID.String(),
			NewPassword:        "brandnewword",
			ConfirmNewPassword: "brandnewword",
		})
		assert.ErrorIs(t, err, auth.ErrResetTokenExpired)
	})

	t.Run("validates input before touching the store", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))

		_, err := auther.ResetPassword(ctx, auth.ResetPasswordRequest{
			Email:              "",
			ResetToken:         "",
			NewPassword:        "brandnewword",
			ConfirmNewPassword: "brandnewword",
		})
		assert.ErrorIs(t, err, auth.ErrResetTokenInvalid)

		_, err = auther.ResetPassword(ctx, auth.ResetPasswordRequest{
			Email:              "a@example.com",
			ResetToken:         uuid.NewString(),
			NewPassword:        "brandnewword",
			ConfirmNewPassword: "different111",
		})
		assert.ErrorIs(t, err, auth.ErrPasswordMismatch)

		_, err = auther.ResetPassword(ctx, auth.ResetPasswordRequest{
			Email:              "a@example.com",
			ResetToken:         uuid.NewString(),
			NewPassword:        "short",
			ConfirmNewPassword: "short",
		})
		assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
	})
}
