package auth

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager groups the stores the authentication flows run against
// and lets multi-step operations share one transaction.
type RepositoryManager interface {
	Users() Users
	PasswordResets() repository.Repository[*PasswordReset]
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
}

type stores struct {
	db     *bun.DB
	users  Users
	resets repository.Repository[*PasswordReset]
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &stores{
		db:     db,
		users:  NewUsersRepository(db),
		resets: NewPasswordResetsRepository(db),
	}
}

// NewPasswordResetsRepository builds the store for pending reset requests.
// Records are looked up by id (the mailed token) or by email.
func NewPasswordResetsRepository(db *bun.DB) repository.Repository[*PasswordReset] {
	return repository.NewRepository(db, repository.ModelHandlers[*PasswordReset]{
		NewRecord: func() *PasswordReset {
			return &PasswordReset{}
		},
		GetID: func(record *PasswordReset) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *PasswordReset, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "email"
		},
	})
}

func (s *stores) Users() Users {
	return s.users
}

func (s *stores) PasswordResets() repository.Repository[*PasswordReset] {
	return s.resets
}

func (s *stores) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.RunInTx(ctx, opts, f)
}
