package brewy

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

const (
	// OrganizationRouteParam is the route path parameter carrying a target organization.
	OrganizationRouteParam = "organization_id"
	// OrganizationQueryParam is the query string parameter carrying a target organization.
	OrganizationQueryParam = "organization_id"
	// OrganizationHeader is the dedicated header carrying a target organization.
	OrganizationHeader = "X-Organization-ID"
)

// RequestHints are the client-supplied organization hints extracted from an
// inbound request. They are honored for SUPER_OWNER principals only.
type RequestHints struct {
	RouteParam string
	QueryParam string
	Header     string
}

// HintsFromRouterContext extracts organization hints from a request context.
func HintsFromRouterContext(c router.Context) RequestHints {
	return RequestHints{
		RouteParam: strings.TrimSpace(c.Param(OrganizationRouteParam, "")),
		QueryParam: strings.TrimSpace(c.Query(OrganizationQueryParam, "")),
		Header:     strings.TrimSpace(c.Header(OrganizationHeader)),
	}
}

func (h RequestHints) first() string {
	// Strict priority: route param, then query, then header.
	if h.RouteParam != "" {
		return h.RouteParam
	}
	if h.QueryParam != "" {
		return h.QueryParam
	}
	return h.Header
}

// ResolveOrganizationScope resolves the target organization for a request.
//
// Non-super principals always resolve to their own organization; client
// hints are ignored outright. This is a hard security invariant, not an
// optimization. SUPER_OWNER principals resolve the first non-empty hint in
// priority order, falling back to their own organization.
func ResolveOrganizationScope(principal *Principal, hints RequestHints) (uuid.UUID, error) {
	if principal == nil {
		return uuid.Nil, ErrAuthenticationRequired
	}

	if !principal.IsSuperOwner() {
		if principal.OrganizationID == uuid.Nil {
			return uuid.Nil, ErrOrganizationRequired
		}
		return principal.OrganizationID, nil
	}

	if hint := hints.first(); hint != "" {
		orgID, err := uuid.Parse(hint)
		if err != nil {
			return uuid.Nil, goerrors.New("invalid organization id", goerrors.CategoryBadInput).
				WithCode(goerrors.CodeBadRequest).
				WithMetadata(map[string]any{"organization_id": hint})
		}
		return orgID, nil
	}

	return principal.OrganizationID, nil
}

// OrganizationFilter is the explicit read-filter contract. It distinguishes
// "scope to this organization" from "no filter at all" so callers never have
// to re-derive intent from the principal's role.
type OrganizationFilter struct {
	id         uuid.UUID
	unfiltered bool
}

// Unfiltered is the cross-tenant read filter. Only ever produced for a
// SUPER_OWNER that supplied no explicit target.
func Unfiltered() OrganizationFilter {
	return OrganizationFilter{unfiltered: true}
}

// FilterByOrganization scopes reads to a single organization.
func FilterByOrganization(id uuid.UUID) OrganizationFilter {
	return OrganizationFilter{id: id}
}

// IsUnfiltered reports whether the filter spans all organizations.
func (f OrganizationFilter) IsUnfiltered() bool {
	return f.unfiltered
}

// OrganizationID returns the scoped organization, valid when not unfiltered.
func (f OrganizationFilter) OrganizationID() uuid.UUID {
	return f.id
}

// ScopeFilter resolves the read filter for a request. A SUPER_OWNER with no
// explicit hint gets Unfiltered; everyone else gets their resolved scope.
func ScopeFilter(principal *Principal, hints RequestHints) (OrganizationFilter, error) {
	if principal == nil {
		return OrganizationFilter{}, ErrAuthenticationRequired
	}

	if principal.IsSuperOwner() && hints.first() == "" {
		return Unfiltered(), nil
	}

	orgID, err := ResolveOrganizationScope(principal, hints)
	if err != nil {
		return OrganizationFilter{}, err
	}

	return FilterByOrganization(orgID), nil
}
