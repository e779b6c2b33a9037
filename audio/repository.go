package audio

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	brewy "github.com/code-brew-house/brewy-backend-sub001"
)

// Jobs is the persistence surface for audio hand-off records.
type Jobs interface {
	repository.Repository[*Job]

	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)
	FindByExternalID(ctx context.Context, externalID string) (*Job, error)
	CreateJob(ctx context.Context, record *Job) (*Job, error)
	MarkSubmitted(ctx context.Context, id uuid.UUID, externalID string) (*Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status JobStatus, results map[string]any, errorMessage string) (*Job, error)
	ListScoped(ctx context.Context, filter brewy.OrganizationFilter, limit, offset int) ([]*Job, error)
}

type jobs struct {
	repository.Repository[*Job]
	db *bun.DB
}

var _ Jobs = (*jobs)(nil)

// NewJobsRepository builds the bun-backed Jobs repository.
func NewJobsRepository(db *bun.DB) Jobs {
	repo := repository.NewRepository[*Job](db, repository.ModelHandlers[*Job]{
		NewRecord: func() *Job { return &Job{} },
		GetID: func(j *Job) uuid.UUID {
			if j == nil {
				return uuid.Nil
			}
			return j.ID
		},
		SetID: func(j *Job, id uuid.UUID) {
			if j != nil {
				j.ID = id
			}
		},
		GetIdentifier: func() string {
			return "external_id"
		},
	})

	return &jobs{
		Repository: repo,
		db:         db,
	}
}

func (a *jobs) findOne(ctx context.Context, column string, value any) (*Job, error) {
	record := &Job{}
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

func (a *jobs) FindByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	return a.findOne(ctx, "id", id)
}

func (a *jobs) FindByExternalID(ctx context.Context, externalID string) (*Job, error) {
	return a.findOne(ctx, "external_id", externalID)
}

func (a *jobs) CreateJob(ctx context.Context, record *Job) (*Job, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = StatusPending
	}
	return a.Repository.Create(ctx, record)
}

func (a *jobs) MarkSubmitted(ctx context.Context, id uuid.UUID, externalID string) (*Job, error) {
	now := time.Now()
	record := &Job{
		ID:         id,
		Status:     StatusProcessing,
		ExternalID: externalID,
		UpdatedAt:  &now,
	}

	res, err := a.db.NewUpdate().
		Model(record).
		Column("status", "external_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return a.FindByID(ctx, id)
}

func (a *jobs) UpdateStatus(ctx context.Context, id uuid.UUID, status JobStatus, results map[string]any, errorMessage string) (*Job, error) {
	record := &Job{
		ID:           id,
		Status:       status,
		Results:      results,
		ErrorMessage: errorMessage,
	}

	now := time.Now()
	record.UpdatedAt = &now

	query := a.db.NewUpdate().
		Model(record).
		Column("status", "updated_at").
		WherePK()

	if results != nil {
		query = query.Column("results")
	}

	if errorMessage != "" {
		query = query.Column("error_message")
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return a.FindByID(ctx, id)
}

func (a *jobs) ListScoped(ctx context.Context, filter brewy.OrganizationFilter, limit, offset int) ([]*Job, error) {
	records := []*Job{}

	query := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC")

	if !filter.IsUnfiltered() {
		query = query.Where("?TableAlias.organization_id = ?", filter.OrganizationID())
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}
