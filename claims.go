package brewy

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTClaims is the on-the-wire claim set. Claims are immutable once signed;
// a new token is a new object, never a patched one.
type JWTClaims struct {
	jwt.RegisteredClaims
	Username       string   `json:"username,omitempty"`
	Email          string   `json:"email,omitempty"`
	OrganizationID string   `json:"org_id,omitempty"`
	UserRole       UserRole `json:"role,omitempty"`
}

// UserID returns the subject as a user id.
func (c *JWTClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Role returns the role claim. Advisory only; authorization uses the live record.
func (c *JWTClaims) Role() UserRole {
	return c.UserRole
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedTime returns the issued at time
func (c *JWTClaims) IssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Lifetime is the span between issuance and expiry.
func (c *JWTClaims) Lifetime() time.Duration {
	return c.Expires().Sub(c.IssuedTime())
}

// Principal is the authenticated actor: claims cross-checked against, and
// role/organization refreshed from, the live user record.
type Principal struct {
	UserID         uuid.UUID
	Username       string
	Email          string
	Role           UserRole
	OrganizationID uuid.UUID
}

// IsSuperOwner reports whether the principal holds the cross-tenant role.
func (p *Principal) IsSuperOwner() bool {
	return p != nil && p.Role == RoleSuperOwner
}

// PrincipalFromUser builds a principal from a freshly loaded user record.
func PrincipalFromUser(user *User) *Principal {
	if user == nil {
		return nil
	}

	return &Principal{
		UserID:         user.ID,
		Username:       user.Username,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
	}
}
