package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// Lifecycle manages administrative account-state transitions: role
// assignment, activation, and logout. Deactivation does not revoke issued
// tokens; the authorization layer consults persisted state and rejects
// deactivated accounts even when they present an unexpired token.
type Lifecycle struct {
	repo   Users
	logger Logger
	sink   ActivitySink
}

// NewLifecycle creates a lifecycle manager backed by the given users store.
func NewLifecycle(repo Users) *Lifecycle {
	return &Lifecycle{
		repo:   repo,
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

// WithLogger overrides the logger used by the lifecycle manager.
func (l *Lifecycle) WithLogger(logger Logger) *Lifecycle {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// WithActivitySink configures an ActivitySink for emitting lifecycle events.
func (l *Lifecycle) WithActivitySink(sink ActivitySink) *Lifecycle {
	l.sink = normalizeActivitySink(sink)
	return l
}

// SetRole assigns a role to the account. The new role only reaches issued
// tokens through expiry or an explicit refresh.
func (l *Lifecycle) SetRole(ctx context.Context, actor ActorRef, accountID uuid.UUID, role UserRole) (*User, error) {
	if !role.IsValid() {
		return nil, goerrors.New("unknown role: "+string(role), goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	user, err := l.repo.SetRole(ctx, accountID, role)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, WrapStoreError(err, "failed to update account role")
	}

	l.record(ctx, ActivityEventRoleChanged, actor, accountID, map[string]any{
		"role": string(role),
	})

	return user, nil
}

// SetActive flips the administrative suspension flag. It reports false when
// the account does not exist.
func (l *Lifecycle) SetActive(ctx context.Context, actor ActorRef, accountID uuid.UUID, active bool) (bool, error) {
	found, err := l.repo.SetActive(ctx, accountID, active)
	if err != nil {
		return false, WrapStoreError(err, "failed to update account status")
	}

	if found {
		l.record(ctx, ActivityEventStatusChanged, actor, accountID, map[string]any{
			"active": active,
		})
	}

	return found, nil
}

// Logout clears stored provider access/refresh artifacts. Session tokens are
// stateless and self-expiring, so there is nothing else to invalidate here.
// It reports false when the account does not exist.
func (l *Lifecycle) Logout(ctx context.Context, accountID uuid.UUID) (bool, error) {
	found, err := l.repo.ClearProviderTokens(ctx, accountID)
	if err != nil {
		return false, WrapStoreError(err, "failed to clear provider tokens")
	}

	if found {
		l.record(ctx, ActivityEventLogout, ActorRef{ID: accountID.String(), Type: "user"}, accountID, nil)
	}

	return found, nil
}

func (l *Lifecycle) record(ctx context.Context, eventType ActivityEventType, actor ActorRef, accountID uuid.UUID, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     accountID.String(),
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(l.sink).Record(ctx, event); err != nil {
		l.logger.Warn("activity sink record error: %v", err)
	}
}
