package brewy

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// UserRole is the user's role within an organization
type UserRole = string

const (
	// RoleSuperOwner is the cross-tenant super administrator
	RoleSuperOwner UserRole = "SUPER_OWNER"
	// RoleOwner owns a single organization
	RoleOwner UserRole = "OWNER"
	// RoleAdmin manages agents inside an organization
	RoleAdmin UserRole = "ADMIN"
	// RoleAgent is the base working role
	RoleAgent UserRole = "AGENT"
)

// DefaultMaxUsers applies when an organization has no explicit member cap.
const DefaultMaxUsers = 50

// User is the user model
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role            UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	FullName        string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	Username        string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email           string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone           string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash    string     `bun:"password_hash" json:"-"`
	OrganizationID  uuid.UUID  `bun:"organization_id,nullzero,type:uuid" json:"organization_id,omitempty"`
	FailedAttempts  int        `bun:"failed_attempts" json:"failed_attempts,omitempty"`
	LockedUntil     *time.Time `bun:"locked_until" json:"locked_until,omitempty"`
	LastFailedLogin *time.Time `bun:"last_failed_login" json:"last_failed_login,omitempty"`
	LastLoginAt     *time.Time `bun:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt       *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasOrganization reports whether the user belongs to an organization.
func (u *User) HasOrganization() bool {
	return u != nil && u.OrganizationID != uuid.Nil
}

// Organization is the tenant model. TotalMemberCount is only ever mutated
// through atomic increments at the storage layer, never read-modify-write.
type Organization struct {
	bun.BaseModel    `bun:"table:organizations,alias:org"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name             string     `bun:"name,notnull" json:"name,omitempty"`
	Email            string     `bun:"email,notnull" json:"email,omitempty"`
	MaxUsers         *int       `bun:"max_users" json:"max_users,omitempty"`
	TotalMemberCount int        `bun:"total_member_count,notnull,default:0" json:"total_member_count"`
	ArchivedAt       *time.Time `bun:"archived_at,soft_delete,nullzero" json:"archived_at,omitempty"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// MemberLimit resolves the effective member cap for the organization.
func (o *Organization) MemberLimit() int {
	if o != nil && o.MaxUsers != nil && *o.MaxUsers > 0 {
		return *o.MaxUsers
	}
	return DefaultMaxUsers
}

// IsArchived reports whether the organization has been soft deleted.
func (o *Organization) IsArchived() bool {
	return o != nil && o.ArchivedAt != nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// normalizePhone formats phone numbers as E.164 when parseable, otherwise
// stores the trimmed input as provided.
func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	num, err := phonenumbers.Parse(phone, "US")
	if err != nil {
		return phone
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}
