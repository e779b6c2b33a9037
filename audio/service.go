package audio

import (
	"context"
	"crypto/hmac"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	brewy "github.com/code-brew-house/brewy-backend-sub001"
)

// Service is the audio hand-off workflow: accept an upload, record a job,
// forward the file to the external pipeline, and track status callbacks.
type Service struct {
	jobs          Jobs
	client        PipelineClient
	webhookSecret string
	logger        brewy.Logger
	provider      brewy.LoggerProvider
	activity      brewy.ActivitySink
}

type ServiceOption func(*Service)

// WithLoggerProvider overrides the logger provider used by the service.
func WithLoggerProvider(provider brewy.LoggerProvider) ServiceOption {
	return func(s *Service) {
		s.provider, s.logger = brewy.ResolveLogger("audio.service", provider, s.logger)
	}
}

// WithActivitySink configures an ActivitySink for hand-off events.
func WithActivitySink(sink brewy.ActivitySink) ServiceOption {
	return func(s *Service) {
		if sink != nil {
			s.activity = sink
		}
	}
}

// NewService builds the workflow over a job store and pipeline client. The
// webhook secret authenticates status callbacks from the pipeline.
func NewService(jobs Jobs, client PipelineClient, webhookSecret string, opts ...ServiceOption) *Service {
	provider, logger := brewy.ResolveLogger("audio.service", nil, nil)

	s := &Service{
		jobs:          jobs,
		client:        client,
		webhookSecret: webhookSecret,
		logger:        logger,
		provider:      provider,
		activity:      brewy.ActivitySinkFunc(nil),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Submit validates the upload, records a pending job in the caller's
// organization, and forwards the file to the pipeline. The job survives a
// pipeline rejection with status failed so the attempt remains visible.
func (s *Service) Submit(ctx context.Context, principal *brewy.Principal, upload Upload) (*Job, error) {
	if principal == nil {
		return nil, brewy.ErrAuthenticationRequired
	}

	orgID, err := brewy.ResolveOrganizationScope(principal, brewy.RequestHints{})
	if err != nil {
		return nil, err
	}

	if err := upload.Validate(); err != nil {
		return nil, err
	}

	job, err := s.jobs.CreateJob(ctx, &Job{
		OrganizationID: orgID,
		UploadedBy:     principal.UserID,
		FileName:       upload.FileName,
		FileSize:       upload.Size,
		Status:         StatusPending,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record audio job")
	}

	resp, err := s.client.SubmitFile(ctx, SubmitRequest{
		JobID:    job.ID.String(),
		FileName: upload.FileName,
		Content:  upload.Content,
	})
	if err != nil {
		s.logger.Error("pipeline submission failed",
			"job_id", job.ID.String(),
			"error", err,
		)
		if _, uerr := s.jobs.UpdateStatus(ctx, job.ID, StatusFailed, nil, "pipeline submission failed"); uerr != nil {
			s.logger.Error("failed to mark job failed", "job_id", job.ID.String(), "error", uerr)
		}
		return nil, err
	}

	job, err = s.jobs.MarkSubmitted(ctx, job.ID, resp.ExternalID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update audio job")
	}

	s.recordActivity(ctx, brewy.ActivityEvent{
		EventType: brewy.ActivityEventAudioSubmit,
		Actor:     brewy.ActorRef{ID: principal.UserID.String(), Type: "user"},
		UserID:    principal.UserID.String(),
		Metadata: map[string]any{
			"job_id":          job.ID.String(),
			"organization_id": orgID.String(),
			"file_name":       upload.FileName,
			"file_size":       upload.Size,
		},
		OccurredAt: time.Now(),
	})

	return job, nil
}

// CallbackPayload is the status update posted back by the pipeline.
type CallbackPayload struct {
	ExternalID   string         `json:"id"`
	Status       string         `json:"status"`
	Results      map[string]any `json:"results,omitempty"`
	ErrorMessage string         `json:"error,omitempty"`
}

// HandleCallback authenticates and applies a pipeline status update. The
// shared secret is compared in constant time.
func (s *Service) HandleCallback(ctx context.Context, secret string, payload CallbackPayload) (*Job, error) {
	if !hmac.Equal([]byte(secret), []byte(s.webhookSecret)) {
		s.logger.Warn("callback rejected: bad webhook secret")
		return nil, ErrInvalidWebhookSecret
	}

	if payload.Status != StatusCompleted && payload.Status != StatusFailed {
		return nil, ErrInvalidCallback.Clone().
			WithMetadata(map[string]any{"status": payload.Status})
	}

	job, err := s.jobs.FindByExternalID(ctx, payload.ExternalID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCallback.Clone().
				WithMetadata(map[string]any{"external_id": payload.ExternalID})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load audio job")
	}

	job, err = s.jobs.UpdateStatus(ctx, job.ID, payload.Status, payload.Results, payload.ErrorMessage)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update audio job")
	}

	s.logger.Info("audio job updated",
		"job_id", job.ID.String(),
		"status", job.Status,
	)

	return job, nil
}

// Get returns a job visible in the caller's organization scope. Jobs outside
// the scope read as not found rather than forbidden.
func (s *Service) Get(ctx context.Context, principal *brewy.Principal, id uuid.UUID) (*Job, error) {
	filter, err := brewy.ScopeFilter(principal, brewy.RequestHints{})
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load audio job")
	}

	if !filter.IsUnfiltered() && job.OrganizationID != filter.OrganizationID() {
		return nil, ErrJobNotFound
	}

	return job, nil
}

// List returns jobs in the caller's resolved scope, newest first.
func (s *Service) List(ctx context.Context, principal *brewy.Principal, hints brewy.RequestHints, limit, offset int) ([]*Job, error) {
	filter, err := brewy.ScopeFilter(principal, hints)
	if err != nil {
		return nil, err
	}

	return s.jobs.ListScoped(ctx, filter, limit, offset)
}

func (s *Service) recordActivity(ctx context.Context, event brewy.ActivityEvent) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}
