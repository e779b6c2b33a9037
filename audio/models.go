package audio

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// JobStatus tracks the hand-off lifecycle. All real analysis happens in the
// external pipeline; this package only records progress.
type JobStatus = string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// MaxFileSize caps accepted uploads at 25MB.
const MaxFileSize = 25 << 20

var allowedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

// Job is one audio hand-off record, scoped to an organization.
type Job struct {
	bun.BaseModel  `bun:"table:audio_jobs,alias:ajob"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	OrganizationID uuid.UUID      `bun:"organization_id,notnull,type:uuid" json:"organization_id,omitempty"`
	UploadedBy     uuid.UUID      `bun:"uploaded_by,notnull,type:uuid" json:"uploaded_by,omitempty"`
	FileName       string         `bun:"file_name,notnull" json:"file_name,omitempty"`
	FileSize       int64          `bun:"file_size,notnull" json:"file_size,omitempty"`
	Status         JobStatus      `bun:"status,notnull" json:"status,omitempty"`
	ExternalID     string         `bun:"external_id" json:"external_id,omitempty"`
	Results        map[string]any `bun:"results,type:jsonb" json:"results,omitempty"`
	ErrorMessage   string         `bun:"error_message" json:"error_message,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Upload is the inbound file descriptor.
type Upload struct {
	FileName string
	Size     int64
	Content  []byte
}

// Validate checks extension and size limits before any work happens.
func (u Upload) Validate() error {
	ext := strings.ToLower(filepath.Ext(u.FileName))
	if !allowedExtensions[ext] {
		return ErrUnsupportedFormat
	}

	if u.Size <= 0 || u.Size > MaxFileSize {
		return ErrFileTooLarge
	}

	return nil
}
