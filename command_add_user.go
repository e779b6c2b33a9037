package brewy

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// AddUserMessage is delegated account creation: an authenticated principal
// creates another account inside an organization. The creator's role bounds
// which roles it may assign.
type AddUserMessage struct {
	Creator        *Principal `json:"-"`
	FullName       string     `json:"full_name"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Password       string     `json:"password"`
	Role           UserRole   `json:"role"`
	OrganizationID string     `json:"organization_id"`
	UseHashid      bool
}

func (e AddUserMessage) Type() string { return "user.add" }

type AddUserHandler struct {
	repo     RepositoryManager
	hasher   PasswordHasher
	activity ActivitySink
}

func NewAddUserHandler(repo RepositoryManager, hasher PasswordHasher) *AddUserHandler {
	return &AddUserHandler{
		repo:     repo,
		hasher:   hasher,
		activity: noopActivitySink{},
	}
}

// WithActivitySink configures an ActivitySink for user creation events.
func (h *AddUserHandler) WithActivitySink(sink ActivitySink) *AddUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *AddUserHandler) Execute(ctx context.Context, event AddUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *AddUserHandler) execute(ctx context.Context, event AddUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Creator == nil {
		return ErrAuthenticationRequired
	}

	role := event.Role
	if role == "" {
		role = RoleAgent
	}

	if !IsValidRole(role) {
		return goerrors.New("invalid role", goerrors.CategoryValidation).
			WithTextCode(textCodeValidationFailed).
			WithMetadata(map[string]any{"role": role})
	}

	if !CanCreateRole(event.Creator.Role, role) {
		return ErrInsufficientRole
	}

	hints := RequestHints{RouteParam: event.OrganizationID}
	orgID, err := ResolveOrganizationScope(event.Creator, hints)
	if err != nil {
		return err
	}

	org, err := h.repo.Organizations().FindByID(ctx, orgID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrOrganizationNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load organization")
	}

	if org.IsArchived() {
		return ErrOrganizationNotFound
	}

	user := &User{}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// member slot is claimed before the insert. The cap lives in the
		// UPDATE's WHERE clause, so two concurrent creations cannot both
		// squeeze past the limit.
		if _, err := h.repo.Organizations().IncrementMemberCount(ctx, tx, org.ID, org.MemberLimit()); err != nil {
			return err
		}

		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = normalizePhone(event.Phone)
		user.FullName = event.FullName
		user.Username = getUsername(event.Username, event.Email)
		user.Role = role
		user.OrganizationID = org.ID
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateUserTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user creation transaction failed")
	}

	_ = normalizeActivitySink(h.activity).Record(ctx, ActivityEvent{
		EventType: ActivityEventUserCreated,
		Actor:     ActorRef{ID: event.Creator.UserID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"organization_id": org.ID.String(),
			"role":            user.Role,
		},
		OccurredAt: time.Now(),
	})

	return nil
}
