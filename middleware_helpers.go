package brewy

import (
	"context"

	"github.com/code-brew-house/brewy-backend-sub001/middleware/guard"
	"github.com/google/uuid"
)

// ValidationListener aliases the guard listener so consumers can wire
// listeners without importing the middleware package directly.
type ValidationListener = guard.ValidationListener

type guardValidator struct {
	validator *TokenValidator
}

// GuardValidator adapts a TokenValidator to the guard middleware contract.
func GuardValidator(v *TokenValidator) guard.TokenValidator {
	return guardValidator{validator: v}
}

func (g guardValidator) Validate(ctx context.Context, raw string) (guard.AuthResult, error) {
	result, err := g.validator.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ContextEnricherAdapter copies the validated principal into the standard
// context so non-HTTP layers can read it without touching router locals.
func ContextEnricherAdapter(c context.Context, result guard.AuthResult) context.Context {
	vr, ok := result.(*ValidationResult)
	if !ok || vr.Principal == nil {
		return c
	}

	enriched := WithPrincipalContext(c, vr.Principal)

	if vr.Principal.OrganizationID != uuid.Nil {
		return WithOrganizationContext(enriched, vr.Principal.OrganizationID)
	}

	return enriched
}

// RegisterValidationListeners appends listeners to a guard.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *guard.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
