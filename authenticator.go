package brewy

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Authenticator composes the token codec, lockout machine, and credential
// store for the login/logout/switch-organization use cases.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	SwitchOrganization(ctx context.Context, userID, targetOrgID uuid.UUID) (string, error)
	TokenService() TokenService
}

type Auther struct {
	repo     RepositoryManager
	hasher   PasswordHasher
	tokens   TokenService
	lockout  *Lockout
	logger   Logger
	provider LoggerProvider
	activity ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, hasher PasswordHasher, tokens TokenService, lockout *Lockout) *Auther {
	provider, logger := ResolveLogger("brewy.authenticator", nil, nil)

	return &Auther{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		lockout:  lockout,
		logger:   logger,
		provider: provider,
		activity: noopActivitySink{},
	}
}

// WithLoggerProvider overrides the logger provider used by the authenticator.
func (s *Auther) WithLoggerProvider(provider LoggerProvider) *Auther {
	s.provider, s.logger = ResolveLogger("brewy.authenticator", provider, s.logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activity = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login authenticates an identifier/password pair. The identifier is tried
// first as an email, then as a username. Unknown user, locked account, and
// wrong password are logged and audited as distinct conditions but all reach
// the caller as the same generic invalid-credentials error so account
// existence never leaks.
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if goerrors.IsNotFound(err) {
			s.logger.Info("login failed: user not found", "identifier", identifier)
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
				"identifier": identifier,
				"reason":     "user not found",
			})
			return "", ErrInvalidCredentials
		}
		s.logger.Error("login failed to load user", "error", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during login")
	}

	if s.lockout.IsLocked(ctx, user) {
		s.logger.Warn("login blocked: account locked",
			"user_id", user.ID.String(),
			"locked_until", user.LockedUntil,
		)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromUser(user), user.ID.String(), map[string]any{
			"identifier": identifier,
			"reason":     "account locked",
		})
		return "", collapseCredentialError(ErrAccountLocked)
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := s.lockout.RecordFailedLogin(ctx, user.ID); err2 != nil {
			s.logger.Error("failed to track login attempt", "user_id", user.ID.String(), "error", err2)
		}
		s.logger.Info("login failed: password mismatch", "user_id", user.ID.String())
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromUser(user), user.ID.String(), map[string]any{
			"identifier": identifier,
			"reason":     "password mismatch",
		})
		return "", ErrInvalidCredentials
	}

	if err := s.lockout.ResetFailedAttempts(ctx, user.ID); err != nil {
		s.logger.Error("failed to reset lockout counters", "user_id", user.ID.String(), "error", err)
	}

	if err := s.repo.Users().TrackSuccessfulLogin(ctx, user.ID); err != nil {
		s.logger.Error("failed to track successful login", "user_id", user.ID.String(), "error", err)
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromUser(user), user.ID.String(), map[string]any{
		"identifier": identifier,
	})

	return token, nil
}

// Logout is bookkeeping only. No token revocation store exists, so an issued
// token remains valid until natural expiry. This is a documented limitation.
func (s *Auther) Logout(ctx context.Context, userID uuid.UUID) error {
	s.emitAuthEvent(ctx, ActivityEventLogout, ActorRef{ID: userID.String(), Type: "user"}, userID.String(), nil)
	return nil
}

// SwitchOrganization reissues a token with a different organization claim,
// preserving subject and role. Restricted to SUPER_OWNER.
func (s *Auther) SwitchOrganization(ctx context.Context, userID, targetOrgID uuid.UUID) (string, error) {
	user, err := s.repo.Users().FindByID(ctx, userID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrAuthenticationRequired
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user during organization switch")
	}

	if user.Role != RoleSuperOwner {
		return "", ErrInsufficientRole
	}

	org, err := s.repo.Organizations().FindByID(ctx, targetOrgID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrOrganizationNotFound
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load target organization")
	}

	if org.IsArchived() {
		return "", ErrOrganizationNotFound
	}

	scoped := *user
	scoped.OrganizationID = targetOrgID

	token, err := s.tokens.Generate(&scoped)
	if err != nil {
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventOrgSwitched, s.actorFromUser(user), user.ID.String(), map[string]any{
		"organization_id": targetOrgID.String(),
	})

	return token, nil
}

func (s *Auther) findByIdentifier(ctx context.Context, identifier string) (*User, error) {
	user, err := s.repo.Users().FindByEmail(ctx, identifier)
	if err == nil {
		return user, nil
	}

	if !goerrors.IsNotFound(err) {
		return nil, err
	}

	return s.repo.Users().FindByUsername(ctx, identifier)
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activity)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}

func (s *Auther) actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}
