package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// ProviderClaims is the set of identity claims asserted by an external
// provider after its own handshake completed. Subject and Email are
// mandatory; the rest is best-effort profile data.
type ProviderClaims struct {
	Subject      string `json:"sub"`
	Email        string `json:"email"`
	GivenName    string `json:"given_name,omitempty"`
	FamilyName   string `json:"family_name,omitempty"`
	Picture      string `json:"picture,omitempty"`
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}

// Validate rejects assertions missing the fields this package cannot resolve
// an account without.
func (c ProviderClaims) Validate() error {
	if c.Subject == "" || c.Email == "" {
		return ErrMissingProviderClaims
	}
	return nil
}

// FederatedResolver maps provider claims to an account, creating one on
// first login. Resolution is race-safe without application locking: the
// storage unique constraint on federated_id arbitrates concurrent first
// logins, and the losing writer re-resolves the winner's row.
type FederatedResolver struct {
	repo   Users
	logger Logger
}

// NewFederatedResolver creates a resolver backed by the given users store.
func NewFederatedResolver(repo Users) *FederatedResolver {
	return &FederatedResolver{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the resolver.
func (r *FederatedResolver) WithLogger(logger Logger) *FederatedResolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Resolve returns the account for the asserted claims, ready for token
// issuance.
func (r *FederatedResolver) Resolve(ctx context.Context, claims ProviderClaims) (*User, error) {
	if err := claims.Validate(); err != nil {
		return nil, err
	}

	user, err := r.repo.GetByFederatedID(ctx, claims.Subject)
	if err == nil {
		return r.refresh(ctx, user, claims)
	}

	if !repository.IsRecordNotFound(err) {
		return nil, WrapStoreError(err, "failed to look up federated account")
	}

	created, err := r.create(ctx, claims)
	if err == nil {
		return created, nil
	}

	if !IsUniqueViolation(err) {
		return nil, err
	}

	// A concurrent first login won the insert; resolve their row as "found".
	user, rerr := r.repo.GetByFederatedID(ctx, claims.Subject)
	if rerr == nil {
		r.logger.Debug("federated insert conflict resolved to existing account", "subject", claims.Subject)
		return r.refresh(ctx, user, claims)
	}

	if repository.IsRecordNotFound(rerr) {
		// The conflict came from the email column: the address belongs to a
		// different, unlinked account.
		return nil, ErrEmailExists
	}

	return nil, WrapStoreError(rerr, "failed to re-resolve federated account after conflict")
}

// refresh updates mutable display fields from fresh provider claims. A
// populated field is never regressed to empty.
func (r *FederatedResolver) refresh(ctx context.Context, user *User, claims ProviderClaims) (*User, error) {
	now := time.Now()

	user.Email = claims.Email
	if claims.GivenName != "" {
		user.FirstName = claims.GivenName
	}
	if claims.FamilyName != "" {
		user.LastName = claims.FamilyName
	}
	if claims.Picture != "" {
		user.ProfilePicture = claims.Picture
	}
	if claims.AccessToken != "" {
		user.ProviderAccessToken = claims.AccessToken
	}
	if claims.RefreshToken != "" {
		user.ProviderRefreshToken = claims.RefreshToken
	}
	user.LastLoginAt = &now
	user.UpdatedAt = &now

	updated, err := r.repo.Update(ctx, user, repository.UpdateByID(user.ID.String()))
	if err != nil {
		return nil, WrapStoreError(err, "failed to refresh federated account")
	}

	return updated, nil
}

func (r *FederatedResolver) create(ctx context.Context, claims ProviderClaims) (*User, error) {
	now := time.Now()
	user := &User{
		FederatedID:          claims.Subject,
		Email:                claims.Email,
		FirstName:            claims.GivenName,
		LastName:             claims.FamilyName,
		ProfilePicture:       claims.Picture,
		ProviderAccessToken:  claims.AccessToken,
		ProviderRefreshToken: claims.RefreshToken,
		Role:                 RolePatient,
		IsActive:             true,
		// The provider already verified this address.
		EmailValidated: true,
		LastLoginAt:    &now,
	}

	created, err := r.repo.Create(ctx, user)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, err
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create federated account")
	}

	return created, nil
}
