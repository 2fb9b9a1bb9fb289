package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ResetTokenWindow is how long a mailed reset token stays redeemable.
const ResetTokenWindow = 24 * time.Hour

// ResetTokenExpired reports whether a reset requested at the given time has
// aged out of the redemption window.
func ResetTokenExpired(requestedAt time.Time) bool {
	return time.Since(requestedAt) > ResetTokenWindow
}

// ResetTokenValidator maps an opaque reset token and the email it was mailed
// to onto the pending reset record. Implementations return
// ErrResetTokenInvalid, ErrResetTokenUsed or ErrResetTokenExpired.
type ResetTokenValidator interface {
	Validate(ctx context.Context, token, email string) (*PasswordReset, error)
}

type resetTokenValidator struct {
	repo RepositoryManager
}

func newResetTokenValidator(repo RepositoryManager) ResetTokenValidator {
	return &resetTokenValidator{repo: repo}
}

func (v *resetTokenValidator) Validate(ctx context.Context, token, email string) (*PasswordReset, error) {
	reset, err := v.repo.PasswordResets().GetByID(ctx, token)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrResetTokenInvalid
		}
		return nil, WrapStoreError(err, "could not retrieve password reset request")
	}

	if reset.Status != ResetRequestedStatus {
		return nil, ErrResetTokenUsed
	}

	if reset.CreatedAt == nil {
		return nil, goerrors.New("password reset record is missing creation date", goerrors.CategoryInternal)
	}

	if ResetTokenExpired(*reset.CreatedAt) {
		return nil, ErrResetTokenExpired
	}

	// tokens are bound to the address they were mailed to
	if reset.Email != email {
		return nil, ErrResetTokenInvalid
	}

	return reset, nil
}

// ForgotPassword starts the reset flow for the given email. An unknown email
// returns nil so the caller cannot probe which addresses hold accounts; only
// store failures surface as errors.
func (s *Auther) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return ErrMissingCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return WrapStoreError(err, "failed to retrieve account for password reset")
	}

	reset := &PasswordReset{
		UserID: &user.ID,
		Email:  email,
		Status: ResetRequestedStatus,
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := s.repo.PasswordResets().CreateTx(ctx, tx, reset)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create password reset record")
		}
		reset = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	// Delivery is best effort; the record already exists and the token can
	// be resent.
	if err := s.mailer.SendPasswordReset(ctx, email, reset.ID.String()); err != nil {
		s.logger.Warn("password reset notification failed: %v", err)
	}

	s.emitAuthEvent(ctx, ActivityEventPasswordResetRequest, s.actorFromUser(user), user.ID.String(), map[string]any{
		"password_reset_id": reset.ID.String(),
	})

	return nil
}

// ResetPassword redeems a reset token, replaces the credential and issues a
// fresh token. Redeeming also marks the account email as verified; following
// the mailed link proves control of the address.
func (s *Auther) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*AuthResult, error) {
	if req.Email == "" || req.ResetToken == "" {
		return nil, ErrResetTokenInvalid
	}
	if req.NewPassword != req.ConfirmNewPassword {
		return nil, ErrPasswordMismatch
	}
	if len(req.NewPassword) < 8 {
		return nil, ErrPasswordTooShort
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	reset, err := s.resetTokens.Validate(ctx, req.ResetToken, req.Email)
	if err != nil {
		return nil, err
	}

	if reset.UserID == nil {
		return nil, goerrors.New("password reset record is not associated with a user", goerrors.CategoryInternal)
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Users().ResetPasswordTx(ctx, tx, *reset.UserID, hash); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrAccountNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		r := MarkPasswordAsReseted(reset.ID)
		if _, err := s.repo.PasswordResets().UpdateTx(ctx, tx, r); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password reset status")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	user, err := s.repo.Users().GetByID(ctx, reset.UserID.String())
	if err != nil {
		return nil, WrapStoreError(err, "failed to reload account after password reset")
	}

	s.emitAuthEvent(ctx, ActivityEventPasswordResetSuccess, s.actorFromUser(user), user.ID.String(), map[string]any{
		"password_reset_id": reset.ID.String(),
	})

	return s.issueFor(user)
}
