package brewy

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultLockoutThreshold is the failed-attempt count that triggers a lock.
	DefaultLockoutThreshold = 5
	// DefaultLockoutWindow is how long a triggered lock lasts.
	DefaultLockoutWindow = 15 * time.Minute
)

// LockoutStore is the slice of the credential store the lockout machine
// mutates. Both operations are atomic at the storage layer; concurrent
// failed attempts never lose an update.
type LockoutStore interface {
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID, threshold int, lockedUntil time.Time) (*User, error)
	ResetLockout(ctx context.Context, id uuid.UUID) error
	SetLockedUntil(ctx context.Context, id uuid.UUID, lockedUntil time.Time) error
}

// Lockout tracks failed-login counters and temporary account suspension.
//
// States: Unlocked (failedAttempts < threshold) -> Locked (threshold reached,
// window active) -> Unlocked (window elapsed, counters reset on next check).
type Lockout struct {
	store     LockoutStore
	threshold int
	window    time.Duration
	now       func() time.Time
	logger    Logger
	provider  LoggerProvider
	activity  ActivitySink
}

// LockoutOption customizes lockout construction.
type LockoutOption func(*Lockout)

// WithLockoutThreshold overrides the failed-attempt threshold.
func WithLockoutThreshold(threshold int) LockoutOption {
	return func(l *Lockout) {
		if threshold > 0 {
			l.threshold = threshold
		}
	}
}

// WithLockoutWindow overrides the lock duration.
func WithLockoutWindow(window time.Duration) LockoutOption {
	return func(l *Lockout) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithLockoutClock injects a custom clock (useful for tests).
func WithLockoutClock(clock func() time.Time) LockoutOption {
	return func(l *Lockout) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithLockoutActivitySink sets the ActivitySink used to publish lockout events.
func WithLockoutActivitySink(sink ActivitySink) LockoutOption {
	return func(l *Lockout) {
		l.activity = normalizeActivitySink(sink)
	}
}

// WithLockoutLoggerProvider overrides the logger provider.
func WithLockoutLoggerProvider(provider LoggerProvider) LockoutOption {
	return func(l *Lockout) {
		l.provider, l.logger = ResolveLogger("brewy.lockout", provider, l.logger)
	}
}

// NewLockout returns the lockout state machine backed by the given store.
func NewLockout(store LockoutStore, opts ...LockoutOption) *Lockout {
	provider, logger := ResolveLogger("brewy.lockout", nil, nil)

	l := &Lockout{
		store:     store,
		threshold: DefaultLockoutThreshold,
		window:    DefaultLockoutWindow,
		now:       time.Now,
		logger:    logger,
		provider:  provider,
		activity:  noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	return l
}

// Threshold reports the configured failed-attempt threshold.
func (l *Lockout) Threshold() int {
	return l.threshold
}

// IsLocked checks whether the user is currently locked out. A lock whose
// window has elapsed is reset in place. A user at or past the threshold with
// no lock timestamp (a partially applied mutation) is healed by setting a
// fresh lock window and reported locked; further denial is the conservative
// direction under retry.
func (l *Lockout) IsLocked(ctx context.Context, user *User) bool {
	if user == nil {
		return false
	}

	if user.FailedAttempts < l.threshold {
		return false
	}

	now := l.now()

	if user.LockedUntil == nil {
		until := now.Add(l.window)
		if err := l.store.SetLockedUntil(ctx, user.ID, until); err != nil {
			l.logger.Error("failed to heal missing lock window", "user_id", user.ID.String(), "error", err)
		}
		user.LockedUntil = &until
		return true
	}

	if user.LockedUntil.After(now) {
		return true
	}

	if err := l.ResetFailedAttempts(ctx, user.ID); err != nil {
		l.logger.Error("failed to reset elapsed lock", "user_id", user.ID.String(), "error", err)
		return true
	}

	user.FailedAttempts = 0
	user.LockedUntil = nil
	user.LastFailedLogin = nil

	return false
}

// RecordFailedLogin atomically increments the failure counter, stamps the
// attempt, and engages the lock when the incremented count reaches the
// threshold.
func (l *Lockout) RecordFailedLogin(ctx context.Context, userID uuid.UUID) error {
	now := l.now()

	user, err := l.store.IncrementFailedAttempts(ctx, userID, l.threshold, now.Add(l.window))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record login attempt")
	}

	if user != nil && user.FailedAttempts >= l.threshold {
		l.logger.Warn("account locked after repeated failures",
			"user_id", userID.String(),
			"failed_attempts", user.FailedAttempts,
		)
		l.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventAccountLocked,
			UserID:    userID.String(),
			Metadata: map[string]any{
				"failed_attempts": user.FailedAttempts,
			},
		})
	}

	return nil
}

// ResetFailedAttempts atomically clears the counter, the lock, and the last
// failure stamp. Invoked on every successful login and whenever an elapsed
// lock is discovered.
func (l *Lockout) ResetFailedAttempts(ctx context.Context, userID uuid.UUID) error {
	if err := l.store.ResetLockout(ctx, userID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reset lockout counters")
	}
	return nil
}

func (l *Lockout) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.now()
	}

	sink := normalizeActivitySink(l.activity)
	if err := sink.Record(ctx, event); err != nil {
		l.logger.Warn("lockout activity sink error", "error", err)
	}
}
