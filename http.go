package brewy

import (
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/code-brew-house/brewy-backend-sub001/middleware/guard"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Message  string            `json:"message"`
	TextCode string            `json:"text_code,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// RouteGuard builds the authentication middleware over a token validator.
// Extra guard options (role gates, listeners) layer on top of the base config.
func RouteGuard(validator *TokenValidator, logger Logger, configure ...func(*guard.Config)) router.MiddlewareFunc {
	cfg := guard.Config{
		TokenValidator:  GuardValidator(validator),
		ContextKey:      PrincipalContextKey,
		ContextEnricher: ContextEnricherAdapter,
		ErrorHandler:    GuardErrorHandler(logger),
		OnExpiringSoon: func(c router.Context, result guard.AuthResult) {
			if logger != nil {
				logger.Warn("token expiring soon", "user_id", result.UserID())
			}
		},
	}

	for _, fn := range configure {
		if fn != nil {
			fn(&cfg)
		}
	}

	return guard.New(cfg)
}

// GuardErrorHandler translates validation failures into the JSON error
// envelope. Expired and malformed tokens keep their distinct text codes so
// clients can react; everything else collapses to a generic unauthorized.
func GuardErrorHandler(logger Logger) func(router.Context, error) error {
	return func(c router.Context, err error) error {
		var richErr *goerrors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if !goerrors.As(err, &richErr) {
			richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "invalid authentication token").
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(textCodeAuthenticationRequired)
		}

		if logger != nil {
			logger.Info("authentication rejected",
				"error", richErr.Message,
				"text_code", richErr.TextCode,
			)
		}

		return RenderError(c, richErr)
	}
}

// RenderError writes a rich error as the JSON envelope with the appropriate
// HTTP status.
func RenderError(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = statusFromCategory(richErr.Category)
	}

	return c.JSON(status, ErrorResponse{
		Error: ErrorBody{
			Message:  richErr.Message,
			TextCode: richErr.TextCode,
		},
	})
}

// RenderValidationError writes field-level validation failures as a 400 with
// a per-field breakdown.
func RenderValidationError(c router.Context, err error) error {
	return c.JSON(router.StatusBadRequest, ErrorResponse{
		Error: ErrorBody{
			Message:  "validation failed",
			TextCode: textCodeValidationFailed,
			Fields:   FormatValidationErrorToMap(err),
		},
	})
}

func statusFromCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return router.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return router.StatusForbidden
	case goerrors.CategoryNotFound:
		return router.StatusNotFound
	case goerrors.CategoryConflict:
		return router.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	default:
		return router.StatusInternalServerError
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field-to-message map with stable ordering for logs.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	verrs, ok := err.(validation.Errors)
	if !ok {
		if err != nil {
			out["payload"] = err.Error()
		}
		return out
	}

	keys := make([]string, 0, len(verrs))
	for field := range verrs {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	for _, field := range keys {
		if verrs[field] != nil {
			out[field] = verrs[field].Error()
		}
	}

	return out
}

func debugPayload(logger Logger, label string, payload any) {
	if logger != nil {
		logger.Debug(label, "payload", print.MaybePrettyJSON(payload))
	}
}
