package brewy

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultTokenTTL applies when the configured duration string is absent or unparseable.
const DefaultTokenTTL = 24 * time.Hour

var ttlExpression = regexp.MustCompile(`^(\d+)([hmd])?$`)

// ParseTokenTTL parses a duration expressed as an integer followed by
// h/m/d (hours/minutes/days) or a bare integer of seconds. Anything else
// falls back to DefaultTokenTTL.
func ParseTokenTTL(expr string) time.Duration {
	matches := ttlExpression.FindStringSubmatch(expr)
	if matches == nil {
		return DefaultTokenTTL
	}

	value, err := strconv.Atoi(matches[1])
	if err != nil || value <= 0 {
		return DefaultTokenTTL
	}

	switch matches[2] {
	case "h":
		return time.Duration(value) * time.Hour
	case "m":
		return time.Duration(value) * time.Minute
	case "d":
		return time.Duration(value) * 24 * time.Hour
	default:
		return time.Duration(value) * time.Second
	}
}

// TokenService signs and verifies the compact signed tokens carrying identity claims.
type TokenService interface {
	Generate(user *User) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Parse(tokenString string) (*JWTClaims, error)
	TTL() time.Duration
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	logger     Logger
	provider   LoggerProvider
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string) *TokenServiceImpl {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	provider, logger := ResolveLogger("brewy.token_service", nil, nil)

	return &TokenServiceImpl{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		logger:     logger,
		provider:   provider,
		now:        time.Now,
	}
}

// WithLoggerProvider overrides the logger provider used by the token service.
func (ts *TokenServiceImpl) WithLoggerProvider(provider LoggerProvider) *TokenServiceImpl {
	ts.provider, ts.logger = ResolveLogger("brewy.token_service", provider, ts.logger)
	return ts
}

// WithClock injects a custom clock (useful for tests).
func (ts *TokenServiceImpl) WithClock(clock func() time.Time) *TokenServiceImpl {
	if clock != nil {
		ts.now = clock
	}
	return ts
}

// TTL returns the configured token lifetime.
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Generate creates a token for the user embedding the live role and organization.
func (ts *TokenServiceImpl) Generate(user *User) (string, error) {
	if user == nil {
		return "", errors.New("user must not be nil", errors.CategoryInternal)
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		Username: user.Username,
		Email:    user.Email,
		UserRole: user.Role,
	}

	if user.HasOrganization() {
		claims.OrganizationID = user.OrganizationID.String()
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Parse verifies the signature and standard temporal validity of a token string.
func (ts *TokenServiceImpl) Parse(tokenString string) (*JWTClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token parse encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token parse could not decode claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
