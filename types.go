package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity is the claim source consumed by the token service.
type Identity interface {
	ID() string
	Email() string
	GivenName() string
	FamilyName() string
	Role() string
	FederatedID() string
}

// Config holds token issuance options. All values are supplied explicitly at
// construction; nothing in this package reads ambient configuration.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	// GetTokenExpiration is the token lifetime in minutes.
	GetTokenExpiration() int
}

// ValidateConfig rejects configurations the service must not start with.
func ValidateConfig(cfg Config) error {
	if cfg == nil {
		return configError("nil config")
	}
	if cfg.GetSigningKey() == "" {
		return configError("missing signing key")
	}
	if cfg.GetIssuer() == "" {
		return configError("missing issuer")
	}
	if len(cfg.GetAudience()) == 0 {
		return configError("missing audience")
	}
	if cfg.GetTokenExpiration() <= 0 {
		return configError("token expiration must be positive")
	}
	return nil
}

// SimpleConfig is a value implementation of Config.
type SimpleConfig struct {
	SigningKey    string
	Issuer        string
	Audience      []string
	ExpiryMinutes int
}

func (c SimpleConfig) GetSigningKey() string   { return c.SigningKey }
func (c SimpleConfig) GetIssuer() string       { return c.Issuer }
func (c SimpleConfig) GetAudience() []string   { return c.Audience }
func (c SimpleConfig) GetTokenExpiration() int { return c.ExpiryMinutes }

// Authenticator is the use case surface exposed to the transport layer.
type Authenticator interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	FederatedLogin(ctx context.Context, claims ProviderClaims) (*AuthResult, error)
	ChangePassword(ctx context.Context, accountID uuid.UUID, req ChangePasswordRequest) (*AuthResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (*AuthResult, error)
	RefreshToken(ctx context.Context, accountID uuid.UUID) (*AuthResult, error)
	Logout(ctx context.Context, accountID uuid.UUID) (bool, error)
}

// UserSnapshot is the account state embedded in an AuthResult. It is a copy;
// later role or profile changes do not mutate it.
type UserSnapshot struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	FullName          string     `json:"full_name"`
	ProfilePictureURL string     `json:"profile_picture_url,omitempty"`
	Role              UserRole   `json:"role"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
}

// AuthResult is the uniform success outcome of every orchestrator use case.
type AuthResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *UserSnapshot `json:"user"`
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
