package brewy

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

var principalCtxKey = &contextKey{"principal"}
var organizationCtxKey = &contextKey{"organization"}

type contextKey struct {
	name string
}

// PrincipalContextKey is the router Locals key the guard middleware stores the
// principal under.
const PrincipalContextKey = "principal"

// WithPrincipalContext sets the Principal in the given context
func WithPrincipalContext(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext finds the principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok
}

// WithOrganizationContext sets the resolved organization scope in the context.
func WithOrganizationContext(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, organizationCtxKey, orgID)
}

// OrganizationFromContext returns the resolved organization scope.
func OrganizationFromContext(ctx context.Context) (uuid.UUID, bool) {
	raw, ok := ctx.Value(organizationCtxKey).(uuid.UUID)
	return raw, ok
}

// PrincipalFromRouterContext extracts the principal stored by the guard
// middleware. Locals may carry either the raw principal or the full
// validation result.
func PrincipalFromRouterContext(c router.Context) (*Principal, bool) {
	switch raw := c.Locals(PrincipalContextKey).(type) {
	case *Principal:
		return raw, raw != nil
	case *ValidationResult:
		return raw.Principal, raw.Principal != nil
	default:
		return nil, false
	}
}
