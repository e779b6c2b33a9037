package brewy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	brewy "github.com/code-brew-house/brewy-backend-sub001"
)

func TestLockoutDefaults(t *testing.T) {
	lockout := brewy.NewLockout(new(MockLockoutStore))
	assert.Equal(t, brewy.DefaultLockoutThreshold, lockout.Threshold())

	lockout = brewy.NewLockout(new(MockLockoutStore), brewy.WithLockoutThreshold(3))
	assert.Equal(t, 3, lockout.Threshold())

	// non-positive overrides are ignored
	lockout = brewy.NewLockout(new(MockLockoutStore), brewy.WithLockoutThreshold(0))
	assert.Equal(t, brewy.DefaultLockoutThreshold, lockout.Threshold())
}

func TestLockoutIsLocked(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("below threshold is never locked", func(t *testing.T) {
		store := new(MockLockoutStore)
		lockout := brewy.NewLockout(store, brewy.WithLockoutClock(clock))

		user := &brewy.User{ID: uuid.New(), FailedAttempts: brewy.DefaultLockoutThreshold - 1}
		assert.False(t, lockout.IsLocked(ctx, user))
		store.AssertNotCalled(t, "ResetLockout")
	})

	t.Run("nil user is not locked", func(t *testing.T) {
		lockout := brewy.NewLockout(new(MockLockoutStore))
		assert.False(t, lockout.IsLocked(ctx, nil))
	})

	t.Run("active window keeps the account locked", func(t *testing.T) {
		store := new(MockLockoutStore)
		lockout := brewy.NewLockout(store, brewy.WithLockoutClock(clock))

		until := now.Add(5 * time.Minute)
		user := &brewy.User{
			ID:             uuid.New(),
			FailedAttempts: brewy.DefaultLockoutThreshold,
			LockedUntil:    &until,
		}

		assert.True(t, lockout.IsLocked(ctx, user))
	})

	t.Run("elapsed window resets counters and unlocks", func(t *testing.T) {
		store := new(MockLockoutStore)
		lockout := brewy.NewLockout(store, brewy.WithLockoutClock(clock))

		until := now.Add(-time.Minute)
		stamp := now.Add(-20 * time.Minute)
		user := &brewy.User{
			ID:              uuid.New(),
			FailedAttempts:  brewy.DefaultLockoutThreshold,
			LockedUntil:     &until,
			LastFailedLogin: &stamp,
		}

		store.On("ResetLockout", ctx, user.ID).Return(nil)

		assert.False(t, lockout.IsLocked(ctx, user))
		assert.Equal(t, 0, user.FailedAttempts)
		assert.Nil(t, user.LockedUntil)
		assert.Nil(t, user.LastFailedLogin)
		store.AssertExpectations(t)
	})

	t.Run("elapsed window stays locked when the reset fails", func(t *testing.T) {
		store := new(MockLockoutStore)
		lockout := brewy.NewLockout(store, brewy.WithLockoutClock(clock))

		until := now.Add(-time.Minute)
		user := &brewy.User{
			ID:             uuid.New(),
			FailedAttempts: brewy.DefaultLockoutThreshold,
			LockedUntil:    &until,
		}

		store.On("ResetLockout", ctx, user.ID).Return(errors.New("db down"))

		assert.True(t, lockout.IsLocked(ctx, user))
	})

	t.Run("missing lock window at threshold is healed and reported locked", func(t *testing.T) {
		store := new(MockLockoutStore)
		window := 10 * time.Minute
		lockout := brewy.NewLockout(store,
			brewy.WithLockoutClock(clock),
			brewy.WithLockoutWindow(window),
		)

		user := &brewy.User{
			ID:             uuid.New(),
			FailedAttempts: brewy.DefaultLockoutThreshold,
		}

		store.On("SetLockedUntil", ctx, user.ID, now.Add(window)).Return(nil)

		assert.True(t, lockout.IsLocked(ctx, user))
		require.NotNil(t, user.LockedUntil)
		assert.Equal(t, now.Add(window), *user.LockedUntil)
		store.AssertExpectations(t)
	})
}

func TestLockoutRecordFailedLogin(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("below threshold records no activity", func(t *testing.T) {
		store := new(MockLockoutStore)
		sink := &RecordingSink{}
		lockout := brewy.NewLockout(store,
			brewy.WithLockoutClock(clock),
			brewy.WithLockoutActivitySink(sink),
		)

		userID := uuid.New()
		store.On("IncrementFailedAttempts", ctx, userID, brewy.DefaultLockoutThreshold, mock.AnythingOfType("time.Time")).
			Return(&brewy.User{ID: userID, FailedAttempts: 2}, nil)

		require.NoError(t, lockout.RecordFailedLogin(ctx, userID))
		assert.Empty(t, sink.Events)
	})

	t.Run("reaching the threshold publishes a lock event", func(t *testing.T) {
		store := new(MockLockoutStore)
		sink := &RecordingSink{}
		lockout := brewy.NewLockout(store,
			brewy.WithLockoutClock(clock),
			brewy.WithLockoutActivitySink(sink),
		)

		userID := uuid.New()
		store.On("IncrementFailedAttempts", ctx, userID, brewy.DefaultLockoutThreshold, mock.AnythingOfType("time.Time")).
			Return(&brewy.User{ID: userID, FailedAttempts: brewy.DefaultLockoutThreshold}, nil)

		require.NoError(t, lockout.RecordFailedLogin(ctx, userID))
		require.Len(t, sink.Events, 1)
		assert.Equal(t, brewy.ActivityEventAccountLocked, sink.Events[0].EventType)
		assert.Equal(t, userID.String(), sink.Events[0].UserID)
		assert.Equal(t, now, sink.Events[0].OccurredAt)
	})

	t.Run("storage failure surfaces as an error", func(t *testing.T) {
		store := new(MockLockoutStore)
		lockout := brewy.NewLockout(store, brewy.WithLockoutClock(clock))

		userID := uuid.New()
		store.On("IncrementFailedAttempts", ctx, userID, brewy.DefaultLockoutThreshold, mock.AnythingOfType("time.Time")).
			Return(nil, errors.New("db down"))

		assert.Error(t, lockout.RecordFailedLogin(ctx, userID))
	})
}

func TestLockoutResetFailedAttempts(t *testing.T) {
	ctx := context.Background()

	store := new(MockLockoutStore)
	lockout := brewy.NewLockout(store)

	userID := uuid.New()
	store.On("ResetLockout", ctx, userID).Return(nil)
	require.NoError(t, lockout.ResetFailedAttempts(ctx, userID))

	other := uuid.New()
	store.On("ResetLockout", ctx, other).Return(errors.New("db down"))
	assert.Error(t, lockout.ResetFailedAttempts(ctx, other))
}
