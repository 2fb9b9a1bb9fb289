package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// RegisterRequest carries the native registration input.
type RegisterRequest struct {
	Email           string     `json:"email"`
	Password        string     `json:"password"`
	ConfirmPassword string     `json:"confirm_password"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Phone           string     `json:"phone_number,omitempty"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
	Gender          string     `json:"gender,omitempty"`
	Address         string     `json:"address,omitempty"`
	City            string     `json:"city,omitempty"`
	State           string     `json:"state,omitempty"`
	ZipCode         string     `json:"zip_code,omitempty"`
	Country         string     `json:"country,omitempty"`
}

// ChangePasswordRequest carries the authenticated password-change input.
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// ResetPasswordRequest carries the reset-link password-change input.
type ResetPasswordRequest struct {
	Email              string `json:"email"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
	ResetToken         string `json:"reset_token"`
}

// Auther coordinates the authentication use cases. It is stateless per
// request; all shared state lives behind the repository manager, so
// instances are safe for concurrent use.
type Auther struct {
	repo             RepositoryManager
	tokenService     TokenService
	resolver         *FederatedResolver
	lifecycle        *Lifecycle
	resetTokens      ResetTokenValidator
	mailer           Mailer
	logger           Logger
	activitySink     ActivitySink
	deterministicIDs bool
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator. An invalid Config is a
// construction failure; callers must treat it as startup-fatal.
func NewAuthenticator(repo RepositoryManager, cfg Config) (*Auther, error) {
	tokenService, err := NewTokenService(cfg, nil)
	if err != nil {
		return nil, err
	}

	a := &Auther{
		repo:         repo,
		tokenService: tokenService,
		resolver:     NewFederatedResolver(repo.Users()),
		lifecycle:    NewLifecycle(repo.Users()),
		mailer:       noopMailer{},
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
	a.resetTokens = newResetTokenValidator(repo)

	return a, nil
}

// WithLogger overrides the logger on the orchestrator and its collaborators.
func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger == nil {
		return s
	}
	s.logger = logger
	s.resolver.WithLogger(logger)
	s.lifecycle.WithLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	s.lifecycle.WithActivitySink(sink)
	return s
}

// WithMailer configures the password-reset notification collaborator.
func (s *Auther) WithMailer(mailer Mailer) *Auther {
	s.mailer = normalizeMailer(mailer)
	return s
}

// WithResetTokenValidator replaces the default reset-token collaborator.
func (s *Auther) WithResetTokenValidator(v ResetTokenValidator) *Auther {
	if v != nil {
		s.resetTokens = v
	}
	return s
}

// WithDeterministicIDs derives registration account ids from the email via
// hashid instead of random UUIDs. Useful for fixture-driven environments.
func (s *Auther) WithDeterministicIDs() *Auther {
	s.deterministicIDs = true
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Lifecycle exposes the account lifecycle manager sharing this orchestrator's
// store and sinks.
func (s *Auther) Lifecycle() *Lifecycle {
	return s.lifecycle
}

// FederatedResolver exposes the resolver for direct use by provider glue.
func (s *Auther) FederatedResolver() *FederatedResolver {
	return s.resolver
}

// Register creates an account with a native credential and issues a token.
func (s *Auther) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled during registration")
	}

	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if len(req.Password) < 8 {
		return nil, ErrPasswordTooShort
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		DateOfBirth:  req.DateOfBirth,
		Gender:       req.Gender,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		Country:      req.Country,
		PasswordHash: hash,
		PasswordSalt: GenerateSalt(),
		Role:         RolePatient,
		IsActive:     true,
		// Native registrations verify the address out of band.
		EmailValidated: false,
	}

	if s.deterministicIDs {
		if id, err := hashid.NewUUID(req.Email); err == nil {
			user.ID = id
		}
	}

	created, err := s.repo.Users().Register(ctx, user)
	if err != nil {
		// The unique constraint is the authority; a lost race surfaces here
		// rather than through a check-then-insert window.
		if IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, WrapStoreError(err, "could not create account")
	}

	s.emitAuthEvent(ctx, ActivityEventRegistration, s.actorFromUser(created), created.ID.String(), map[string]any{
		"email": created.Email,
	})

	return s.issueFor(created)
}

// Login verifies a native credential. Unknown email, missing credential and
// wrong password are indistinguishable to the caller.
func (s *Auther) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.emitLoginFailure(ctx, email, ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, WrapStoreError(err, "failed to look up account")
	}

	if !user.IsActive {
		s.emitLoginFailure(ctx, email, ErrAccountDeactivated)
		return nil, ErrAccountDeactivated
	}

	if !user.HasPassword() {
		s.emitLoginFailure(ctx, email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.emitLoginFailure(ctx, email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.Users().TrackSucccessfulLogin(ctx, user); err != nil {
		return nil, WrapStoreError(err, "failed to track login")
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromUser(user), user.ID.String(), map[string]any{
		"email": email,
	})

	return s.issueFor(user)
}

// FederatedLogin resolves provider claims to an account and issues a token.
// Provider-level authentication failures never reach this method; the
// transport layer completes the handshake first.
func (s *Auther) FederatedLogin(ctx context.Context, claims ProviderClaims) (*AuthResult, error) {
	user, err := s.resolver.Resolve(ctx, claims)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"subject": claims.Subject,
			"error":   err.Error(),
		})
		return nil, err
	}

	if !user.IsActive {
		s.emitLoginFailure(ctx, user.Email, ErrAccountDeactivated)
		return nil, ErrAccountDeactivated
	}

	s.emitAuthEvent(ctx, ActivityEventFederatedLogin, s.actorFromUser(user), user.ID.String(), map[string]any{
		"subject": claims.Subject,
	})

	return s.issueFor(user)
}

// ChangePassword replaces the native credential after verifying the current
// one, then reissues a token.
func (s *Auther) ChangePassword(ctx context.Context, accountID uuid.UUID, req ChangePasswordRequest) (*AuthResult, error) {
	user, err := s.repo.Users().GetByID(ctx, accountID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, WrapStoreError(err, "failed to look up account")
	}

	if !user.HasPassword() {
		return nil, ErrNoPasswordSet
	}

	if err := ComparePasswordAndHash(req.CurrentPassword, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if req.NewPassword != req.ConfirmNewPassword {
		return nil, ErrPasswordMismatch
	}
	if len(req.NewPassword) < 8 {
		return nil, ErrPasswordTooShort
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if err := s.repo.Users().UpdatePassword(ctx, accountID, hash); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, WrapStoreError(err, "failed to update password")
	}

	user.PasswordHash = hash

	s.emitAuthEvent(ctx, ActivityEventPasswordChanged, s.actorFromUser(user), user.ID.String(), nil)

	return s.issueFor(user)
}

// RefreshToken reissues a token from current persisted state without
// re-checking credentials, picking up role and profile changes made since
// the original issuance.
func (s *Auther) RefreshToken(ctx context.Context, accountID uuid.UUID) (*AuthResult, error) {
	user, err := s.repo.Users().GetByID(ctx, accountID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, WrapStoreError(err, "failed to look up account")
	}

	return s.issueFor(user)
}

// Logout clears provider artifacts for the account. The session token stays
// valid until it expires; it is stateless by design.
func (s *Auther) Logout(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return s.lifecycle.Logout(ctx, accountID)
}

// GenerateTestToken mints a token for a synthetic account snapshot. Intended
// for integration tooling; never persists anything.
func (s *Auther) GenerateTestToken(snapshot UserSnapshot) (*AuthResult, error) {
	id, err := uuid.Parse(snapshot.ID)
	if err != nil {
		id = uuid.New()
	}

	user := &User{
		ID:        id,
		Email:     snapshot.Email,
		FirstName: snapshot.FirstName,
		LastName:  snapshot.LastName,
		Role:      snapshot.Role,
		IsActive:  true,
	}

	return s.issueFor(user)
}

// AccountByID returns the account snapshot for the given id.
func (s *Auther) AccountByID(ctx context.Context, accountID uuid.UUID) (*UserSnapshot, error) {
	user, err := s.repo.Users().GetByID(ctx, accountID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, WrapStoreError(err, "failed to look up account")
	}
	return user.Snapshot(), nil
}

// AccountByEmail returns the account snapshot for the given email.
func (s *Auther) AccountByEmail(ctx context.Context, email string) (*UserSnapshot, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, WrapStoreError(err, "failed to look up account")
	}
	return user.Snapshot(), nil
}

// AccountByFederatedID returns the account snapshot for a provider subject.
func (s *Auther) AccountByFederatedID(ctx context.Context, federatedID string) (*UserSnapshot, error) {
	user, err := s.repo.Users().GetByFederatedID(ctx, federatedID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, WrapStoreError(err, "failed to look up account")
	}
	return user.Snapshot(), nil
}

// AccountsByRole returns snapshots for every account holding the given role,
// oldest first.
func (s *Auther) AccountsByRole(ctx context.Context, role UserRole) ([]*UserSnapshot, error) {
	if !role.IsValid() {
		return nil, goerrors.New("unknown role: "+string(role), goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	users, err := s.repo.Users().ListByRole(ctx, role)
	if err != nil {
		return nil, WrapStoreError(err, "failed to list accounts")
	}

	snapshots := make([]*UserSnapshot, 0, len(users))
	for _, user := range users {
		snapshots = append(snapshots, user.Snapshot())
	}

	return snapshots, nil
}

func (s *Auther) issueFor(user *User) (*AuthResult, error) {
	token, err := s.tokenService.Generate(NewIdentityFromUser(user))
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		return nil, err
	}

	return &AuthResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokenService.Lifetime()),
		User:      user.Snapshot(),
	}, nil
}

func (s *Auther) emitLoginFailure(ctx context.Context, email string, cause error) {
	s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
		"email": email,
		"error": cause.Error(),
	})
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}
