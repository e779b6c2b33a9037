package brewy

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var incrementMemberCountSQL = `UPDATE "organizations" AS "org"
SET
	"total_member_count" = "total_member_count" + 1,
	"updated_at" = ?
WHERE
	"org"."archived_at" IS NULL
AND "org"."id" = ?
AND "org"."total_member_count" < ?
RETURNING *;`

// decrement never drops below zero; the member count invariant is enforced
// in the statement itself, not in request handlers.
var decrementMemberCountSQL = `UPDATE "organizations" AS "org"
SET
	"total_member_count" = CASE
		WHEN "total_member_count" > 0 THEN "total_member_count" - 1
		ELSE 0
	END,
	"updated_at" = ?
WHERE
	"org"."archived_at" IS NULL
AND "org"."id" = ?
RETURNING *;`

// Organizations is the credential store surface for tenant records.
type Organizations interface {
	repository.Repository[*Organization]

	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)

	CreateOrganization(ctx context.Context, record *Organization) (*Organization, error)
	CreateOrganizationTx(ctx context.Context, tx bun.IDB, record *Organization) (*Organization, error)

	// IncrementMemberCount atomically claims a member slot, honoring the
	// organization's cap in the same statement. Returns ErrUserLimitExceeded
	// when the cap is reached.
	IncrementMemberCount(ctx context.Context, tx bun.IDB, id uuid.UUID, limit int) (*Organization, error)
	DecrementMemberCount(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Organization, error)
}

type organizations struct {
	repository.Repository[*Organization]
	db *bun.DB
}

var (
	_ Organizations = (*organizations)(nil)
)

// NewOrganizationsRepository builds the bun-backed Organizations repository.
func NewOrganizationsRepository(db *bun.DB) Organizations {
	repo := repository.NewRepository[*Organization](db, repository.ModelHandlers[*Organization]{
		NewRecord: func() *Organization { return &Organization{} },
		GetID: func(o *Organization) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *Organization, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &organizations{
		Repository: repo,
		db:         db,
	}
}

func (a *organizations) FindByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	record := &Organization{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *organizations) CreateOrganization(ctx context.Context, record *Organization) (*Organization, error) {
	return a.CreateOrganizationTx(ctx, a.db, record)
}

func (a *organizations) CreateOrganizationTx(ctx context.Context, tx bun.IDB, record *Organization) (*Organization, error) {
	if record != nil {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		record.Email = normalizeEmail(record.Email)
	}
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *organizations) IncrementMemberCount(ctx context.Context, tx bun.IDB, id uuid.UUID, limit int) (*Organization, error) {
	if tx == nil {
		tx = a.db
	}

	res, err := a.Repository.RawTx(ctx, tx, incrementMemberCountSQL, time.Now(), id.String(), limit)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		// Either the organization is gone or the cap is reached; distinguish
		// so the caller can surface the right error.
		if _, ferr := a.FindByID(ctx, id); ferr != nil {
			return nil, ErrOrganizationNotFound
		}
		return nil, ErrUserLimitExceeded
	}

	return res[0], nil
}

func (a *organizations) DecrementMemberCount(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Organization, error) {
	if tx == nil {
		tx = a.db
	}

	res, err := a.Repository.RawTx(ctx, tx, decrementMemberCountSQL, time.Now(), id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, ErrOrganizationNotFound
	}

	return res[0], nil
}
