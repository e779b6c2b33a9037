package brewy

import (
	"context"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// BearerScheme is the expected Authorization scheme prefix, matched case-sensitively.
	BearerScheme = "Bearer "

	// MaxClockSkew tolerates issuedAt timestamps slightly in the future.
	MaxClockSkew = 60 * time.Second

	// MaxTokenLifetime caps expiresAt - issuedAt.
	MaxTokenLifetime = 7 * 24 * time.Hour

	// ExpiryWarningWindow marks tokens that succeed validation but expire soon.
	ExpiryWarningWindow = time.Hour
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)
	// UUID versions 1 through 5.
	uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)
)

// UserLoader is the slice of the credential store the validator needs.
type UserLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// ValidationResult carries the validated claims, the principal rebuilt from
// the live user record, and a non-fatal expiring-soon signal.
type ValidationResult struct {
	Claims       *JWTClaims
	Principal    *Principal
	ExpiringSoon bool
}

// UserID returns the validated subject.
func (r *ValidationResult) UserID() string {
	if r == nil || r.Principal == nil {
		return ""
	}
	return r.Principal.UserID.String()
}

// Username returns the username from the live user record.
func (r *ValidationResult) Username() string {
	if r == nil || r.Principal == nil {
		return ""
	}
	return r.Principal.Username
}

// Email returns the email from the live user record.
func (r *ValidationResult) Email() string {
	if r == nil || r.Principal == nil {
		return ""
	}
	return r.Principal.Email
}

// Role returns the authoritative role, taken from the live record.
func (r *ValidationResult) Role() string {
	if r == nil || r.Principal == nil {
		return ""
	}
	return r.Principal.Role
}

// OrganizationID returns the effective organization scope.
func (r *ValidationResult) OrganizationID() string {
	if r == nil || r.Principal == nil || r.Principal.OrganizationID == uuid.Nil {
		return ""
	}
	return r.Principal.OrganizationID.String()
}

// IsExpiringSoon reports whether the token expires inside the warning window.
func (r *ValidationResult) IsExpiringSoon() bool {
	return r != nil && r.ExpiringSoon
}

// HasRole reports whether the principal holds the exact role.
func (r *ValidationResult) HasRole(role string) bool {
	return r != nil && r.Principal != nil && r.Principal.Role == role
}

// IsAtLeast reports whether the principal's role meets the hierarchy minimum.
func (r *ValidationResult) IsAtLeast(minRole string) bool {
	return r != nil && r.Principal != nil && RoleAtLeast(r.Principal.Role, minRole)
}

// TokenValidator runs structural, temporal, and claim-consistency checks on a
// presented token and cross-checks the result against the live user record.
// Validation is a pure function of (token, now, loaded user) and is safe under
// unlimited parallelism.
type TokenValidator struct {
	tokens   TokenService
	users    UserLoader
	logger   Logger
	provider LoggerProvider
	now      func() time.Time
}

// NewTokenValidator builds a validator over the given codec and user store.
func NewTokenValidator(tokens TokenService, users UserLoader) *TokenValidator {
	provider, logger := ResolveLogger("brewy.token_validator", nil, nil)
	return &TokenValidator{
		tokens:   tokens,
		users:    users,
		logger:   logger,
		provider: provider,
		now:      time.Now,
	}
}

// WithLoggerProvider overrides the logger provider used by the validator.
func (v *TokenValidator) WithLoggerProvider(provider LoggerProvider) *TokenValidator {
	v.provider, v.logger = ResolveLogger("brewy.token_validator", provider, v.logger)
	return v
}

// WithClock injects a custom clock (useful for tests).
func (v *TokenValidator) WithClock(clock func() time.Time) *TokenValidator {
	if clock != nil {
		v.now = clock
	}
	return v
}

// Validate checks a presented token end to end. On success the returned
// principal carries the role and organization from the freshly loaded user
// record, not the token; the token's copies are advisory only.
func (v *TokenValidator) Validate(ctx context.Context, raw string) (*ValidationResult, error) {
	raw = strings.TrimPrefix(raw, BearerScheme)

	claims, err := v.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}

	if err := v.checkStructure(claims); err != nil {
		return nil, err
	}

	now := v.now()
	expiringSoon, err := v.checkTemporalPolicy(claims, now)
	if err != nil {
		return nil, err
	}

	if err := v.checkClaimFormats(claims); err != nil {
		return nil, err
	}

	principal, err := v.crossCheck(ctx, claims)
	if err != nil {
		return nil, err
	}

	return &ValidationResult{
		Claims:       claims,
		Principal:    principal,
		ExpiringSoon: expiringSoon,
	}, nil
}

func (v *TokenValidator) checkStructure(claims *JWTClaims) error {
	missing := ""
	switch {
	case claims.RegisteredClaims.Subject == "":
		missing = "sub"
	case claims.Username == "":
		missing = "username"
	case claims.Email == "":
		missing = "email"
	case claims.RegisteredClaims.IssuedAt == nil:
		missing = "iat"
	case claims.RegisteredClaims.ExpiresAt == nil:
		missing = "exp"
	}

	if missing != "" {
		return malformedClaim(missing, "missing required claim")
	}

	return nil
}

func (v *TokenValidator) checkTemporalPolicy(claims *JWTClaims, now time.Time) (bool, error) {
	issuedAt := claims.IssuedTime()
	expiresAt := claims.Expires()

	if issuedAt.After(now.Add(MaxClockSkew)) {
		return false, malformedClaim("iat", "issued in the future")
	}

	if expiresAt.Sub(issuedAt) > MaxTokenLifetime {
		return false, malformedClaim("exp", "excessive lifetime")
	}

	return expiresAt.Sub(now) < ExpiryWarningWindow, nil
}

func (v *TokenValidator) checkClaimFormats(claims *JWTClaims) error {
	if err := validation.Validate(claims.Email, is.Email); err != nil {
		return invalidClaim("email")
	}

	if !usernamePattern.MatchString(claims.Username) {
		return invalidClaim("username")
	}

	if !uuidPattern.MatchString(claims.RegisteredClaims.Subject) {
		return invalidClaim("sub")
	}

	return nil
}

func (v *TokenValidator) crossCheck(ctx context.Context, claims *JWTClaims) (*Principal, error) {
	userID, err := uuid.Parse(claims.RegisteredClaims.Subject)
	if err != nil {
		return nil, invalidClaim("sub")
	}

	user, err := v.users.FindByID(ctx, userID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, mismatchedClaim("sub", "user not found")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user during token validation")
	}

	if user == nil {
		return nil, mismatchedClaim("sub", "user not found")
	}

	if normalizeEmail(user.Email) != normalizeEmail(claims.Email) {
		v.logger.Warn("token email does not match live record", "user_id", userID.String())
		return nil, mismatchedClaim("email", "email mismatch")
	}

	if user.Username != claims.Username {
		v.logger.Warn("token username does not match live record", "user_id", userID.String())
		return nil, mismatchedClaim("username", "username mismatch")
	}

	principal := PrincipalFromUser(user)

	// A SUPER_OWNER may carry an organization claim set by switch-organization;
	// for everyone else the live record is authoritative.
	if principal.IsSuperOwner() && claims.OrganizationID != "" {
		if orgID, err := uuid.Parse(claims.OrganizationID); err == nil {
			principal.OrganizationID = orgID
		}
	}

	return principal, nil
}

func malformedClaim(claim, reason string) error {
	clone := ErrTokenMalformed.Clone()
	if clone == nil {
		return ErrTokenMalformed
	}
	clone.Message = "token is malformed: " + reason
	clone.Source = ErrTokenMalformed
	return clone.WithMetadata(map[string]any{"claim": claim})
}

func invalidClaim(claim string) error {
	clone := ErrTokenClaimInvalid.Clone()
	if clone == nil {
		return ErrTokenClaimInvalid
	}
	clone.Message = "token claim invalid: " + claim
	clone.Source = ErrTokenClaimInvalid
	return clone.WithMetadata(map[string]any{"claim": claim})
}

func mismatchedClaim(claim, reason string) error {
	clone := ErrTokenClaimMismatch.Clone()
	if clone == nil {
		return ErrTokenClaimMismatch
	}
	clone.Message = "token claim mismatch: " + reason
	clone.Source = ErrTokenClaimMismatch
	return clone.WithMetadata(map[string]any{"claim": claim})
}
