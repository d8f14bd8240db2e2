package submission

import (
	"context"
	"io"
)

// Result aggregates the scoring backend's per-question acceptance outcomes,
// produced once per attempt. FailedUploads lists speaking questions whose
// audio never made it to storage; they are reported, never blocking.
type Result struct {
	AttemptID     uint            `json:"attempt_id"`
	Status        string          `json:"status"`
	TotalRawScore *float64        `json:"total_raw_score,omitempty"`
	BandScore     *float64        `json:"band_score,omitempty"`
	FailedUploads []UploadOutcome `json:"failed_uploads,omitempty"`
}

// ScoringClient submits the final transformed answers for grading. Failures
// surface as errors with a human-readable message.
type ScoringClient interface {
	Submit(ctx context.Context, attemptID uint, payload Payload) (*Result, error)
}

// AudioClip is one speaking recording handed to the uploader.
type AudioClip struct {
	Filename        string
	ContentType     string
	SizeBytes       int64
	DurationSeconds *float64
	Body            io.Reader
}

// UploadedFile describes a stored speaking recording.
type UploadedFile struct {
	FileUploadID    string   `json:"file_upload_id"`
	AudioURL        string   `json:"audio_url"`
	FileSizeBytes   int64    `json:"file_size_bytes"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

// AudioUploader stores one speaking question's recording.
type AudioUploader interface {
	Upload(ctx context.Context, attemptID, questionID uint, clip AudioClip) (*UploadedFile, error)
}

// Navigator redirects the client after a successful submission.
type Navigator interface {
	GoTo(path string)
}

// Alerter surfaces a user-visible message on submission failure.
type Alerter interface {
	Alert(message string)
}
