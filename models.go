package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted account record. Every account carries at least one
// usable credential path: a password hash, a federated id, or both (a linked
// account). Email and federated id are unique at the storage layer.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID             uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole  `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName      string    `bun:"first_name" json:"first_name,omitempty"`
	LastName       string    `bun:"last_name" json:"last_name,omitempty"`
	Email          string    `bun:"email,notnull,unique" json:"email,omitempty"`
	FederatedID    string    `bun:"federated_id,nullzero,unique" json:"federated_id,omitempty"`
	ProfilePicture string    `bun:"profile_picture" json:"profile_picture,omitempty"`

	PasswordHash string `bun:"password_hash" json:"-"`
	// PasswordSalt predates bcrypt's embedded salt. Kept for schema
	// compatibility; verification ignores it.
	PasswordSalt string `bun:"password_salt" json:"-"`

	ProviderAccessToken  string `bun:"provider_access_token" json:"-"`
	ProviderRefreshToken string `bun:"provider_refresh_token" json:"-"`

	Phone       string     `bun:"phone_number" json:"phone_number,omitempty"`
	DateOfBirth *time.Time `bun:"date_of_birth,nullzero" json:"date_of_birth,omitempty"`
	Gender      string     `bun:"gender" json:"gender,omitempty"`
	Address     string     `bun:"address" json:"address,omitempty"`
	City        string     `bun:"city" json:"city,omitempty"`
	State       string     `bun:"state" json:"state,omitempty"`
	ZipCode     string     `bun:"zip_code" json:"zip_code,omitempty"`
	Country     string     `bun:"country" json:"country,omitempty"`

	IsActive       bool `bun:"is_active" json:"is_active"`
	EmailValidated bool `bun:"is_email_verified" json:"is_email_verified,omitempty"`

	LastLoginAt *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// FullName joins the display name parts, tolerating federated accounts that
// arrived without one of them.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasPassword reports whether the account supports native login.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Snapshot copies the externally visible account state.
func (u *User) Snapshot() *UserSnapshot {
	if u == nil {
		return nil
	}
	return &UserSnapshot{
		ID:                u.ID.String(),
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		FullName:          u.FullName(),
		ProfilePictureURL: u.ProfilePicture,
		Role:              u.Role,
		IsActive:          u.IsActive,
		CreatedAt:         u.CreatedAt,
		LastLoginAt:       u.LastLoginAt,
	}
}

const (
	// ResetRequestedStatus is the requested status
	ResetRequestedStatus = "requested"
	// ResetExpiredStatus is the expired status
	ResetExpiredStatus = "expired"
	// ResetChangedStatus is the changed status
	ResetChangedStatus = "changed"
)

// PasswordReset backs the forgot/reset password flow. Its id doubles as the
// opaque reset token mailed to the account holder.
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_reset,alias:pwdr"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID    *uuid.UUID `bun:"user_id,notnull" json:"user_id,omitempty"`
	User      *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Status    string     `bun:"status,notnull" json:"status,omitempty"`
	Email     string     `bun:"email,notnull" json:"email,omitempty"`
	ResetedAt *time.Time `bun:"reseted_at,nullzero" json:"reseted_at,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// MarkPasswordAsReseted will create a new instance
func MarkPasswordAsReseted(id uuid.UUID) *PasswordReset {
	r := &PasswordReset{}
	r.ID = id
	r.Status = ResetChangedStatus
	n := time.Now()
	r.ResetedAt = &n
	return r
}
