package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the validated view of a session token presented by a client.
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	GivenName() string
	FamilyName() string
	Role() UserRole
	FederatedID() string
	HasRole(role UserRole) bool
	IsAtLeast(minRole UserRole) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims. The claim set is a
// snapshot taken at issuance; role changes after issuance do not affect
// already-issued tokens until they expire or are refreshed.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID            string `json:"uid,omitempty"`
	UserEmail      string `json:"email,omitempty"`
	UserGivenName  string `json:"given_name,omitempty"`
	UserFamilyName string `json:"family_name,omitempty"`
	UserRole       string `json:"role,omitempty"`
	FedID          string `json:"federated_id,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account id
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the account email at issuance time
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// GivenName returns the first name claim
func (c *JWTClaims) GivenName() string {
	return c.UserGivenName
}

// FamilyName returns the last name claim
func (c *JWTClaims) FamilyName() string {
	return c.UserFamilyName
}

// Role returns the account role at issuance time
func (c *JWTClaims) Role() UserRole {
	return UserRole(c.UserRole)
}

// FederatedID returns the provider subject id, empty for native-only accounts
func (c *JWTClaims) FederatedID() string {
	return c.FedID
}

// HasRole checks if the bearer holds a specific role
func (c *JWTClaims) HasRole(role UserRole) bool {
	return UserRole(c.UserRole) == role
}

// IsAtLeast checks if the bearer's role is at least the minimum required role
func (c *JWTClaims) IsAtLeast(minRole UserRole) bool {
	return UserRole(c.UserRole).IsAtLeast(minRole)
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
