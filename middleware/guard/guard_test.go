package guard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/code-brew-house/brewy-backend-sub001/middleware/guard"
)

// stubResult is a canned AuthResult backed by plain fields.
type stubResult struct {
	userID       string
	role         string
	expiringSoon bool
}

func (s stubResult) UserID() string         { return s.userID }
func (s stubResult) Username() string       { return "agent_01" }
func (s stubResult) Email() string          { return "agent@example.com" }
func (s stubResult) Role() string           { return s.role }
func (s stubResult) OrganizationID() string { return "" }
func (s stubResult) IsExpiringSoon() bool   { return s.expiringSoon }
func (s stubResult) HasRole(role string) bool {
	return s.role == role
}
func (s stubResult) IsAtLeast(minRole string) bool {
	rank := map[string]int{"AGENT": 0, "ADMIN": 1, "OWNER": 2, "SUPER_OWNER": 3}
	current, ok := rank[s.role]
	if !ok {
		return false
	}
	min, ok := rank[minRole]
	return ok && current >= min
}

// stubValidator accepts a single known credential.
type stubValidator struct {
	accept string
	result guard.AuthResult
	err    error
}

func (v stubValidator) Validate(_ context.Context, raw string) (guard.AuthResult, error) {
	if v.err != nil {
		return nil, v.err
	}
	if raw != v.accept {
		return nil, errors.New("token is malformed")
	}
	return v.result, nil
}

func newGuardContext(authorization string) *router.MockContext {
	ctx := router.NewMockContext()
	if authorization != "" {
		ctx.HeadersM[router.HeaderAuthorization] = authorization
		ctx.On("Header", router.HeaderAuthorization).Return(authorization).Maybe()
	} else {
		ctx.On("Header", router.HeaderAuthorization).Return("").Maybe()
	}
	ctx.On("Context").Return(context.Background()).Maybe()
	ctx.On("Locals", mock.Anything, mock.Anything).Return(nil).Maybe()
	return ctx
}

func passthroughError(captured *error) func(router.Context, error) error {
	return func(_ router.Context, err error) error {
		*captured = err
		return err
	}
}

func TestExtractRawToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		err    error
	}{
		{"valid bearer", "Bearer abc.def.ghi", "abc.def.ghi", nil},
		{"missing header", "", "", guard.ErrMissingToken},
		{"lowercase scheme", "bearer abc.def.ghi", "", guard.ErrMissingToken},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", guard.ErrMissingToken},
		{"scheme only", "Bearer ", "", guard.ErrMissingToken},
		{"no space", "Bearerabc", "", guard.ErrMissingToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newGuardContext(tt.header)

			raw, err := guard.ExtractRawToken(ctx, "Bearer")
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, raw)
		})
	}
}

func TestGuardMiddleware(t *testing.T) {
	result := stubResult{userID: "u-1", role: "ADMIN"}

	t.Run("valid token reaches the protected handler", func(t *testing.T) {
		var captured error
		mw := guard.New(guard.Config{
			TokenValidator: stubValidator{accept: "good-token", result: result},
			ErrorHandler:   passthroughError(&captured),
		})

		called := false
		handler := mw(func(ctx router.Context) error {
			called = true
			return nil
		})

		ctx := newGuardContext("Bearer good-token")
		require.NoError(t, handler(ctx))
		assert.True(t, called)
		assert.NoError(t, captured)
	})

	t.Run("missing token stops at the error handler", func(t *testing.T) {
		var captured error
		mw := guard.New(guard.Config{
			TokenValidator: stubValidator{accept: "good-token", result: result},
			ErrorHandler:   passthroughError(&captured),
		})

		called := false
		handler := mw(func(ctx router.Context) error {
			called = true
			return nil
		})

		ctx := newGuardContext("")
		assert.Error(t, handler(ctx))
		assert.ErrorIs(t, captured, guard.ErrMissingToken)
		assert.False(t, called)
	})

	t.Run("invalid token stops at the error handler", func(t *testing.T) {
		var captured error
		mw := guard.New(guard.Config{
			TokenValidator: stubValidator{accept: "good-token", result: result},
			ErrorHandler:   passthroughError(&captured),
		})

		handler := mw(func(ctx router.Context) error { return nil })

		ctx := newGuardContext("Bearer tampered-token")
		assert.Error(t, handler(ctx))
		assert.Error(t, captured)
	})

	t.Run("filter skips validation entirely", func(t *testing.T) {
		mw := guard.New(guard.Config{
			TokenValidator: stubValidator{err: errors.New("should not be called")},
			Filter:         func(router.Context) bool { return true },
		})

		called := false
		handler := mw(func(ctx router.Context) error {
			called = true
			return nil
		})

		ctx := newGuardContext("")
		require.NoError(t, handler(ctx))
		assert.True(t, called)
	})

	t.Run("required roles gate access", func(t *testing.T) {
		var captured error
		mw := guard.New(guard.Config{
			TokenValidator: stubValidator{accept: "good-token", result: result},
			ErrorHandler:   passthroughError(&captured),
			RequiredRoles:  []string{"OWNER", "SUPER_OWNER"},
		})

		handler := mw(func(ctx router.Context) error { return nil })

		ctx := newGuardContext("Bearer good-token")
		assert.Error(t, handler(ctx))
		assert.Contains(t, captured.Error(), "required role")
	})

	t.Run("super owner passes any required-roles gate", func(t *testing.T) {
		var captured error
		super := stubResult{userID: "u-root", role: "SUPER_OWNER"}

		mw := guard.New(guard.Config{
			TokenValidator: stubValidator{accept: "good-token", result: super},
			ErrorHandler:   passthroughError(&captured),
			RequiredRoles:  []string{"OWNER"},
		})

		called := false
		handler := mw(func(ctx router.Context) error {
			called = true
			return nil
		})

		ctx := newGuardContext("Bearer good-token")
		require.NoError(t, handler(ctx))
		assert.True(t, called)
		assert.NoError(t, captured)
	})

	t.Run("super owner passes the minimum-role gate", func(t *testing.T) {
		super := stubResult{userID: "u-root", role: "SUPER_OWNER"}

		mw := guard.New(guard.Config{
			TokenValidator: stubValidator{accept: "good-token", result: super},
			MinimumRole:    "OWNER",
		})

		called := false
		handler := mw(func(ctx router.Context) error {
			called = true
			return nil
		})

		ctx := newGuardContext("Bearer good-token")
		require.NoError(t, handler(ctx))
		assert.True(t, called)
	})

	t.Run("minimum role admits higher ranks", func(t *testing.T) {
		mw := guard.New(guard.Config{
			TokenValidator: stubValidator{accept: "good-token", result: result},
			MinimumRole:    "ADMIN",
		})

		called := false
		handler := mw(func(ctx router.Context) error {
			called = true
			return nil
		})

		ctx := newGuardContext("Bearer good-token")
		require.NoError(t, handler(ctx))
		assert.True(t, called)
	})

	t.Run("minimum role rejects lower ranks", func(t *testing.T) {
		var captured error
		mw := guard.New(guard.Config{
			TokenValidator: stubValidator{accept: "good-token", result: stubResult{userID: "u-2", role: "AGENT"}},
			ErrorHandler:   passthroughError(&captured),
			MinimumRole:    "OWNER",
		})

		handler := mw(func(ctx router.Context) error { return nil })

		ctx := newGuardContext("Bearer good-token")
		assert.Error(t, handler(ctx))
		assert.Contains(t, captured.Error(), "minimum role")
	})

	t.Run("validation listeners run before authorization", func(t *testing.T) {
		var captured error
		var seen guard.AuthResult

		mw := guard.New(guard.Config{
			TokenValidator: stubValidator{accept: "good-token", result: result},
			ErrorHandler:   passthroughError(&captured),
			ValidationListeners: []guard.ValidationListener{
				func(_ router.Context, r guard.AuthResult) error {
					seen = r
					return errors.New("listener veto")
				},
			},
		})

		handler := mw(func(ctx router.Context) error { return nil })

		ctx := newGuardContext("Bearer good-token")
		assert.Error(t, handler(ctx))
		assert.Equal(t, "u-1", seen.UserID())
		assert.Contains(t, captured.Error(), "listener veto")
	})

	t.Run("expiring soon fires the callback but still succeeds", func(t *testing.T) {
		warned := false
		mw := guard.New(guard.Config{
			TokenValidator: stubValidator{
				accept: "good-token",
				result: stubResult{userID: "u-1", role: "ADMIN", expiringSoon: true},
			},
			OnExpiringSoon: func(_ router.Context, r guard.AuthResult) {
				warned = r.IsExpiringSoon()
			},
		})

		handler := mw(func(ctx router.Context) error { return nil })

		ctx := newGuardContext("Bearer good-token")
		require.NoError(t, handler(ctx))
		assert.True(t, warned)
	})

	t.Run("configuration without a validator panics", func(t *testing.T) {
		assert.Panics(t, func() {
			handler := guard.New()(func(ctx router.Context) error { return nil })
			_ = handler(newGuardContext(""))
		})
	})
}
