package brewy

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var incrementFailedAttemptsSQL = `UPDATE "users" AS "usr"
SET
	"failed_attempts" = "failed_attempts" + 1,
	"last_failed_login" = ?,
	"locked_until" = CASE
		WHEN "failed_attempts" + 1 >= ? THEN ?
		ELSE "locked_until"
	END,
	"updated_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// Users is the credential store surface for user records. Counter mutations
// are single UPDATE statements so concurrent attempts never lose an update.
type Users interface {
	repository.Repository[*User]

	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)

	IncrementFailedAttempts(ctx context.Context, id uuid.UUID, threshold int, lockedUntil time.Time) (*User, error)
	ResetLockout(ctx context.Context, id uuid.UUID) error
	SetLockedUntil(ctx context.Context, id uuid.UUID, lockedUntil time.Time) error
	TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error

	CreateUser(ctx context.Context, record *User) (*User, error)
	CreateUserTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)

	HasSuperOwner(ctx context.Context) (bool, error)
	HasSuperOwnerTx(ctx context.Context, tx bun.IDB) (bool, error)
	CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
	_ LockoutStore                 = (*users)(nil)
	_ UserLoader                   = (*users)(nil)
)

// NewUsersRepository builds the bun-backed Users repository.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) findOne(ctx context.Context, column string, value any) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{column: value})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.findOne(ctx, "id", id)
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.findOne(ctx, "email", normalizeEmail(email))
}

func (a *users) FindByUsername(ctx context.Context, username string) (*User, error) {
	return a.findOne(ctx, "username", normalizeUsername(username))
}

func (a *users) IncrementFailedAttempts(ctx context.Context, id uuid.UUID, threshold int, lockedUntil time.Time) (*User, error) {
	now := time.Now()
	res, err := a.Repository.Raw(ctx, incrementFailedAttemptsSQL,
		now, threshold, lockedUntil, now, id.String(),
	)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

func (a *users) ResetLockout(ctx context.Context, id uuid.UUID) error {
	// NOTE: raw SQL so NULL assignments and the counter reset land in one
	// statement regardless of ORM zero-value handling.
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"failed_attempts" = 0,
			"locked_until" = NULL,
			"last_failed_login" = NULL,
			"updated_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, time.Now(), id).Exec(ctx)

	return err
}

func (a *users) SetLockedUntil(ctx context.Context, id uuid.UUID, lockedUntil time.Time) error {
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"locked_until" = ?,
			"updated_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, lockedUntil, time.Now(), id).Exec(ctx)

	return err
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"last_login_at" = ?,
			"updated_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, time.Now(), time.Now(), id).Exec(ctx)

	return err
}

func (a *users) CreateUser(ctx context.Context, record *User) (*User, error) {
	return a.CreateUserTx(ctx, a.db, record)
}

func (a *users) CreateUserTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *users) HasSuperOwner(ctx context.Context) (bool, error) {
	return a.HasSuperOwnerTx(ctx, a.db)
}

// HasSuperOwnerTx runs the availability check on the caller's transaction so
// bootstrap can make the check-then-create sequence atomic.
func (a *users) HasSuperOwnerTx(ctx context.Context, tx bun.IDB) (bool, error) {
	count, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.user_role = ?", RoleSuperOwner).
		Count(ctx)

	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (a *users) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	return a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.organization_id = ?", orgID).
		Count(ctx)
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = normalizeEmail(record.Email)
	record.Username = normalizeUsername(record.Username)
	if record.Role == "" {
		record.Role = RoleAgent
	}
}
