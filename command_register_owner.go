package brewy

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterOwnerMessage bootstraps the deployment: it creates the first
// organization together with its SUPER_OWNER account.
type RegisterOwnerMessage struct {
	FullName         string `json:"full_name"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Password         string `json:"password"`
	OrganizationName string `json:"organization_name"`
	MaxUsers         int    `json:"max_users"`
	UseHashid        bool
}

func (e RegisterOwnerMessage) Type() string { return "owner.register" }

type RegisterOwnerHandler struct {
	repo     RepositoryManager
	hasher   PasswordHasher
	activity ActivitySink
}

func NewRegisterOwnerHandler(repo RepositoryManager, hasher PasswordHasher) *RegisterOwnerHandler {
	return &RegisterOwnerHandler{
		repo:     repo,
		hasher:   hasher,
		activity: noopActivitySink{},
	}
}

// WithActivitySink configures an ActivitySink for bootstrap events.
func (h *RegisterOwnerHandler) WithActivitySink(sink ActivitySink) *RegisterOwnerHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *RegisterOwnerHandler) Execute(ctx context.Context, event RegisterOwnerMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during owner registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterOwnerHandler) execute(ctx context.Context, event RegisterOwnerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user := &User{}
	org := &Organization{
		Name:  event.OrganizationName,
		Email: normalizeEmail(event.Email),
	}
	if event.MaxUsers > 0 {
		org.MaxUsers = &event.MaxUsers
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Open registration closes permanently once a SUPER_OWNER exists. The
		// check shares the transaction with the creates so two concurrent
		// bootstraps cannot both pass it.
		taken, err := h.repo.Users().HasSuperOwnerTx(ctx, tx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check registration availability")
		}
		if taken {
			return ErrRegistrationNotAllowed
		}

		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		if event.UseHashid {
			if id, err := hashid.NewUUID(event.OrganizationName); err == nil {
				org.ID = id
			}
		}

		if org, err = h.repo.Organizations().CreateOrganizationTx(ctx, tx, org); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create organization")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = normalizePhone(event.Phone)
		user.FullName = event.FullName
		user.Username = getUsername(event.Username, event.Email)
		user.Role = RoleSuperOwner
		user.OrganizationID = org.ID
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateUserTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		if _, err = h.repo.Organizations().IncrementMemberCount(ctx, tx, org.ID, org.MemberLimit()); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "owner registration transaction failed")
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRegistered,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"organization_id": org.ID.String(),
			"role":            user.Role,
		},
		OccurredAt: time.Now(),
	})

	return nil
}

func (h *RegisterOwnerHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	_ = normalizeActivitySink(h.activity).Record(ctx, event)
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
