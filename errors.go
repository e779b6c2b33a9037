package brewy

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	textCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	textCodeAccountLocked          = "ACCOUNT_LOCKED"
	textCodeTokenExpired           = "TOKEN_EXPIRED"
	textCodeTokenMalformed         = "TOKEN_MALFORMED"
	textCodeTokenClaimInvalid      = "TOKEN_CLAIM_INVALID"
	textCodeTokenClaimMismatch     = "TOKEN_CLAIM_MISMATCH"
	textCodeInsufficientRole       = "INSUFFICIENT_ROLE"
	textCodeOrganizationRequired   = "ORGANIZATION_REQUIRED"
	textCodeOrganizationNotFound   = "ORGANIZATION_NOT_FOUND"
	textCodeUserLimitExceeded      = "USER_LIMIT_EXCEEDED"
	textCodeRegistrationNotAllowed = "REGISTRATION_NOT_ALLOWED"
	textCodeValidationFailed       = "VALIDATION_FAILED"
)

// ErrAuthenticationRequired is returned when a protected operation has no principal.
var ErrAuthenticationRequired = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(textCodeAuthenticationRequired).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials is the generic login failure. Unknown user, wrong
// password, and locked account all collapse into this error at the client
// boundary to prevent user enumeration.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountLocked is the internal-only lockout condition. It is logged in
// full detail but never surfaced verbatim to a client.
var ErrAccountLocked = goerrors.New("account temporarily locked", goerrors.CategoryAuth).
	WithTextCode(textCodeAccountLocked).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a token fails temporal validation.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers signature failures, missing or mistyped claims,
// clock-skewed issuance, and excessive lifetimes.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenClaimInvalid is returned when a claim fails format validation.
var ErrTokenClaimInvalid = goerrors.New("token claim invalid", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenClaimInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenClaimMismatch is returned when claims disagree with the live user record.
var ErrTokenClaimMismatch = goerrors.New("token claim mismatch", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenClaimMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrInsufficientRole is returned when a role gate or creation-permission check fails.
var ErrInsufficientRole = goerrors.New("insufficient role", goerrors.CategoryAuthz).
	WithTextCode(textCodeInsufficientRole).
	WithCode(goerrors.CodeForbidden)

// ErrOrganizationRequired is returned when a non-super principal has no organization.
var ErrOrganizationRequired = goerrors.New("organization required", goerrors.CategoryAuthz).
	WithTextCode(textCodeOrganizationRequired).
	WithCode(goerrors.CodeForbidden)

// ErrOrganizationNotFound is returned when a target organization does not exist.
var ErrOrganizationNotFound = goerrors.New("organization not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeOrganizationNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUserLimitExceeded is returned when an organization is at its member cap.
var ErrUserLimitExceeded = goerrors.New("organization user limit exceeded", goerrors.CategoryConflict).
	WithTextCode(textCodeUserLimitExceeded).
	WithCode(goerrors.CodeConflict)

// ErrRegistrationNotAllowed is returned for unsolicited self-registration
// once the system has been bootstrapped.
var ErrRegistrationNotAllowed = goerrors.New("registration not allowed", goerrors.CategoryConflict).
	WithTextCode(textCodeRegistrationNotAllowed).
	WithCode(goerrors.CodeConflict)

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if hasTextCode(err, textCodeTokenExpired) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	if hasTextCode(err, textCodeTokenMalformed) {
		return true
	}
	return err != nil && (strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT"))
}

// IsInvalidCredentials reports whether err is the generic login failure.
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, textCodeInvalidCredentials)
}

// IsAccountLocked reports whether err is the internal lockout condition.
func IsAccountLocked(err error) bool {
	return hasTextCode(err, textCodeAccountLocked)
}

// collapseCredentialError maps internal login failures onto the generic
// ErrInvalidCredentials. Authorization and organization errors pass through
// untouched since they do not leak account existence.
func collapseCredentialError(err error) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.TextCode {
		case textCodeAccountLocked, textCodeInvalidCredentials:
			return ErrInvalidCredentials
		}
	}

	if goerrors.IsNotFound(err) {
		return ErrInvalidCredentials
	}

	return err
}
