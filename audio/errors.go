package audio

import "github.com/goliatone/go-errors"

const (
	TextCodeUnsupportedFormat = "audio_unsupported_format"
	TextCodeFileTooLarge      = "audio_file_too_large"
	TextCodeJobNotFound       = "audio_job_not_found"
	TextCodePipelineFailed    = "audio_pipeline_failed"
	TextCodeInvalidCallback   = "audio_invalid_callback"
	TextCodeInvalidSecret     = "audio_invalid_webhook_secret"
)

// ErrUnsupportedFormat is returned when the file extension is not accepted.
var ErrUnsupportedFormat = errors.New("unsupported audio format", errors.CategoryValidation).
	WithTextCode(TextCodeUnsupportedFormat).
	WithCode(errors.CodeBadRequest)

// ErrFileTooLarge is returned when the upload exceeds the size cap.
var ErrFileTooLarge = errors.New("audio file exceeds size limit", errors.CategoryValidation).
	WithTextCode(TextCodeFileTooLarge).
	WithCode(errors.CodeBadRequest)

// ErrJobNotFound is returned when a job does not exist in the caller's scope.
var ErrJobNotFound = errors.New("audio job not found", errors.CategoryNotFound).
	WithTextCode(TextCodeJobNotFound).
	WithCode(errors.CodeNotFound)

// ErrPipelineFailed is returned when the external pipeline rejects a hand-off.
var ErrPipelineFailed = errors.New("audio pipeline submission failed", errors.CategoryOperation).
	WithTextCode(TextCodePipelineFailed).
	WithCode(errors.CodeInternal)

// ErrInvalidCallback is returned for callbacks that reference unknown jobs or
// carry an unrecognized status.
var ErrInvalidCallback = errors.New("invalid pipeline callback", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidCallback).
	WithCode(errors.CodeBadRequest)

// ErrInvalidWebhookSecret is returned when the callback secret does not match.
var ErrInvalidWebhookSecret = errors.New("invalid webhook secret", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidSecret).
	WithCode(errors.CodeUnauthorized)
