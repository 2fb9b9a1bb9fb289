package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// ClaimsContextKey is where RequireAuth stores validated claims on the
// request context.
const ClaimsContextKey = "auth_claims"

// TokenMiddlewareConfig configures the bearer token route guard.
type TokenMiddlewareConfig struct {
	// Validator is required; the TokenService implements it.
	Validator TokenValidator
	// ContextKey overrides ClaimsContextKey for Locals storage.
	ContextKey string
	// MinimumRole, when set, rejects bearers below that role level.
	MinimumRole UserRole
	// Filter skips the guard for matching requests.
	Filter func(router.Context) bool
	// ErrorHandler overrides the default JSON rejection.
	ErrorHandler func(router.Context, error) error
}

// RequireAuth guards a route group behind bearer token validation. Validated
// claims are stored under the configured context key for downstream handlers.
func RequireAuth(cfg TokenMiddlewareConfig) router.MiddlewareFunc {
	if cfg.Validator == nil {
		panic("Missing TokenValidator in auth middleware...")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = ClaimsContextKey
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = rejectWithJSON
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			token, err := ParseBearerToken(ctx.GetString(router.HeaderAuthorization, ""))
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.Validator.Validate(token)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if cfg.MinimumRole != "" && !claims.IsAtLeast(cfg.MinimumRole) {
				return cfg.ErrorHandler(ctx, ErrInsufficientRole)
			}

			ctx.Locals(cfg.ContextKey, claims)

			return ctx.Next()
		}
	}
}

// ClaimsFromContext retrieves claims stored by RequireAuth.
func ClaimsFromContext(ctx router.Context) (AuthClaims, bool) {
	claims, ok := ctx.Locals(ClaimsContextKey).(AuthClaims)
	return claims, ok
}

// ParseBearerToken extracts the raw token from an Authorization header value.
func ParseBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrTokenMalformed
	}

	const scheme = "Bearer"
	if len(header) <= len(scheme)+1 || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", ErrTokenMalformed
	}

	token := strings.TrimSpace(header[len(scheme):])
	if token == "" {
		return "", ErrTokenMalformed
	}

	return token, nil
}

func rejectWithJSON(ctx router.Context, err error) error {
	status := StatusFromError(err)
	body := map[string]any{
		"error": err.Error(),
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	return ctx.JSON(status, body)
}
