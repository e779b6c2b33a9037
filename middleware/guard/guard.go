package guard

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

// ErrMissingToken is returned when no credential is present at all. Callers
// can distinguish "no token" from "bad token" when building error responses.
var ErrMissingToken = errors.New("missing authentication token")

// SuperRole holds cross-tenant override semantics: it passes every role gate,
// whatever RequiredRoles or MinimumRole are configured. Mirrored here rather
// than imported so the middleware carries no cycle back into the auth package.
const SuperRole = "SUPER_OWNER"

// AuthResult mirrors the validated-token surface of the auth package so this
// middleware carries no import cycle back into it.
type AuthResult interface {
	UserID() string
	Username() string
	Email() string
	Role() string
	OrganizationID() string
	IsExpiringSoon() bool
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
}

// TokenValidator validates a raw bearer credential end to end.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (AuthResult, error)
}

// ValidationListener runs after a token validates but before authorization checks.
type ValidationListener func(ctx router.Context, result AuthResult) error

type Config struct {
	// Filter skips the middleware entirely when it returns true.
	Filter func(router.Context) bool

	// SuccessHandler replaces the wrapped handler when set. Leave nil to
	// continue to the protected handler after validation.
	SuccessHandler router.HandlerFunc
	ErrorHandler   func(router.Context, error) error

	// TokenValidator is required.
	TokenValidator TokenValidator

	// ContextKey is the router-locals key the result is stored under.
	ContextKey string

	// AuthScheme is the Authorization scheme prefix, matched case-sensitively.
	AuthScheme string

	// RequiredRoles grants access when the result holds any listed role.
	// Empty means no role restriction.
	RequiredRoles []string

	// MinimumRole gates on the role hierarchy when set.
	MinimumRole string

	// RoleChecker overrides the built-in role checks when provided.
	RoleChecker func(AuthResult, string) bool

	// ContextEnricher propagates the result into the standard context.
	ContextEnricher func(context.Context, AuthResult) context.Context

	// OnExpiringSoon fires for tokens inside the expiry warning window.
	OnExpiringSoon func(router.Context, AuthResult)

	ValidationListeners []ValidationListener
}

// New builds the authentication middleware. It extracts the bearer
// credential, validates it, optionally gates on roles, and stores the result
// in router locals plus the standard context.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return hf(ctx)
			}

			raw, err := ExtractRawToken(ctx, cfg.AuthScheme)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			result, err := cfg.TokenValidator.Validate(ctx.Context(), raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := cfg.runValidationListeners(ctx, result); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := authorize(result, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if result.IsExpiringSoon() && cfg.OnExpiringSoon != nil {
				cfg.OnExpiringSoon(ctx, result)
			}

			ctx.Locals(cfg.ContextKey, result)

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), result))
			}

			if cfg.SuccessHandler != nil {
				return cfg.SuccessHandler(ctx)
			}

			return hf(ctx)
		}
	}
}

// ExtractRawToken pulls the credential from the Authorization header. The
// scheme prefix must match exactly, including case. A header that carries a
// different scheme is treated as no credential rather than a malformed one.
func ExtractRawToken(ctx router.Context, scheme string) (string, error) {
	header := ctx.Header(router.HeaderAuthorization)
	if header == "" {
		return "", ErrMissingToken
	}

	prefix := scheme + " "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMissingToken
	}

	raw := header[len(prefix):]
	if raw == "" {
		return "", ErrMissingToken
	}

	return raw, nil
}

func authorize(result AuthResult, cfg Config) error {
	if len(cfg.RequiredRoles) == 0 && cfg.MinimumRole == "" && cfg.RoleChecker == nil {
		return nil
	}

	if result.HasRole(SuperRole) {
		return nil
	}

	if cfg.RoleChecker != nil {
		roleToCheck := cfg.MinimumRole
		if roleToCheck == "" && len(cfg.RequiredRoles) > 0 {
			roleToCheck = cfg.RequiredRoles[0]
		}
		if !cfg.RoleChecker(result, roleToCheck) {
			return errors.New("access denied: role check failed")
		}
		return nil
	}

	if len(cfg.RequiredRoles) > 0 {
		allowed := false
		for _, role := range cfg.RequiredRoles {
			if result.HasRole(role) {
				allowed = true
				break
			}
		}
		if !allowed {
			return errors.New("access denied: required role not found")
		}
	}

	if cfg.MinimumRole != "" && !result.IsAtLeast(cfg.MinimumRole) {
		return errors.New("access denied: minimum role required")
	}

	return nil
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if errors.Is(err, ErrMissingToken) {
				return c.Status(router.StatusUnauthorized).SendString(ErrMissingToken.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.TokenValidator == nil {
		panic("GUARD: middleware configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "principal"
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) runValidationListeners(ctx router.Context, result AuthResult) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, result); err != nil {
			return err
		}
	}
	return nil
}
