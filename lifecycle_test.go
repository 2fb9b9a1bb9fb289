package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitaldesk/go-auth"
)

func TestLifecycleSetRole(t *testing.T) {
	ctx := context.Background()
	admin := auth.ActorRef{ID: uuid.NewString(), Type: "user"}

	t.Run("assigns role and records event", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))
		sink := &capturingSink{}
		auther.WithActivitySink(sink)

		result := registerAccount(t, auther, "role.change@example.com", "secretword1")
		accountID := mustUUID(t, result.User.ID)

		user, err := auther.Lifecycle().SetRole(ctx, admin, accountID, auth.RoleDoctor)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, auth.RoleDoctor, user.Role)

		snapshot, err := auther.AccountByID(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleDoctor, snapshot.Role)

		require.True(t, sink.HasEvent(auth.ActivityEventRoleChanged))
		for _, evt := range sink.Events() {
			if evt.EventType == auth.ActivityEventRoleChanged {
				assert.Equal(t, admin, evt.Actor)
				assert.Equal(t, result.User.ID, evt.UserID)
				assert.Equal(t, string(auth.RoleDoctor), evt.Metadata["role"])
			}
		}
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))

		result := registerAccount(t, auther, "role.invalid@example.com", "secretword1")

		_, err := auther.Lifecycle().SetRole(ctx, admin, mustUUID(t, result.User.ID), auth.UserRole("superuser"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown role")
	})

	t.Run("rejects unknown account", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))

		_, err := auther.Lifecycle().SetRole(ctx, admin, uuid.New(), auth.RoleAdmin)
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})

	t.Run("role change does not invalidate issued tokens", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))

		result := registerAccount(t, auther, "role.token@example.com", "secretword1")
		accountID := mustUUID(t, result.User.ID)

		_, err := auther.Lifecycle().SetRole(ctx, admin, accountID, auth.RoleDoctor)
		require.NoError(t, err)

		claims, err := auther.TokenService().Validate(result.Token)
		require.NoError(t, err)
		assert.Equal(t, auth.RolePatient, claims.Role())
	})
}

func TestLifecycleSetActive(t *testing.T) {
	ctx := context.Background()
	admin := auth.ActorRef{ID: uuid.NewString(), Type: "user"}

	t.Run("deactivates and reactivates account", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))
		sink := &capturingSink{}
		auther.WithActivitySink(sink)

		result := registerAccount(t, auther, "status.flip@example.com", "secretword1")
		accountID := mustUUID(t, result.User.ID)

		found, err := auther.Lifecycle().SetActive(ctx, admin, accountID, false)
		require.NoError(t, err)
		assert.True(t, found)

		_, err = auther.Login(ctx, "status.flip@example.com", "secretword1")
		assert.ErrorIs(t, err, auth.ErrAccountDeactivated)

		found, err = auther.Lifecycle().SetActive(ctx, admin, accountID, true)
		require.NoError(t, err)
		assert.True(t, found)

		_, err = auther.Login(ctx, "status.flip@example.com", "secretword1")
		assert.NoError(t, err)

		require.True(t, sink.HasEvent(auth.ActivityEventStatusChanged))
		for _, evt := range sink.Events() {
			if evt.EventType == auth.ActivityEventStatusChanged {
				assert.Equal(t, admin, evt.Actor)
			}
		}
	})

	t.Run("reports false for unknown account", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t, newTestDB(t))
		sink := &capturingSink{}
		auther.WithActivitySink(sink)

		found, err := auther.Lifecycle().SetActive(ctx, admin, uuid.New(), false)
		require.NoError(t, err)
		assert.False(t, found)
		assert.False(t, sink.HasEvent(auth.ActivityEventStatusChanged))
	})
}
