package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/vitaldesk/go-auth"
)

// MockIdentity implements auth.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) GivenName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) FamilyName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) FederatedID() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger records log lines instead of printing them. It accepts any call
// so error-path logging never fails a test on its own.
type MockLogger struct {
	mu    sync.Mutex
	Lines []string
}

func (m *MockLogger) log(format string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lines = append(m.Lines, format)
}

func (m *MockLogger) Debug(format string, args ...any) { m.log(format) }
func (m *MockLogger) Info(format string, args ...any)  { m.log(format) }
func (m *MockLogger) Warn(format string, args ...any)  { m.log(format) }
func (m *MockLogger) Error(format string, args ...any) { m.log(format) }

type capturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt auth.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) Events() []auth.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]auth.ActivityEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *capturingSink) HasEvent(eventType auth.ActivityEventType) bool {
	for _, evt := range c.Events() {
		if evt.EventType == eventType {
			return true
		}
	}
	return false
}

type capturingMailer struct {
	mu     sync.Mutex
	emails []string
	tokens []string
}

func (m *capturingMailer) SendPasswordReset(ctx context.Context, email, resetToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, email)
	m.tokens = append(m.tokens, resetToken)
	return nil
}

// stubUsers overrides selected auth.Users methods; everything else passes
// through to the embedded store.
type stubUsers struct {
	auth.Users
	getByFederatedID func(ctx context.Context, federatedID string) (*auth.User, error)
	create           func(ctx context.Context, user *auth.User) (*auth.User, error)
}

func (s *stubUsers) GetByFederatedID(ctx context.Context, federatedID string) (*auth.User, error) {
	if s.getByFederatedID != nil {
		return s.getByFederatedID(ctx, federatedID)
	}
	return s.Users.GetByFederatedID(ctx, federatedID)
}

func (s *stubUsers) Create(ctx context.Context, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	if s.create != nil {
		return s.create(ctx, record)
	}
	return s.Users.Create(ctx, record, criteria...)
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

// newTestDB opens an isolated in-memory sqlite database with the auth schema
// applied.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, model := range []any{(*auth.User)(nil), (*auth.PasswordReset)(nil)} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	return db
}

func newTestAuthenticator(t *testing.T, db *bun.DB) (*auth.Auther, auth.RepositoryManager) {
	t.Helper()

	repo := auth.NewRepositoryManager(db)
	auther, err := auth.NewAuthenticator(repo, auth.SimpleConfig{
		SigningKey:    "test-signing-key",
		Issuer:        "test-issuer",
		Audience:      []string{"test-audience"},
		ExpiryMinutes: 60,
	})
	require.NoError(t, err)

	return auther, repo
}
