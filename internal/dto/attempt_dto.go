package dto

import "time"

// AnswerValueDTO mirrors the stored tagged union for state reads.
type AnswerValueDTO struct {
	QuestionID uint                   `json:"question_id"`
	Kind       string                 `json:"kind"`
	Text       string                 `json:"text,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// SpeakingOutcomeDTO is one speaking question's upload slot: not_attempted,
// uploading, uploaded or error.
type SpeakingOutcomeDTO struct {
	QuestionID      uint     `json:"question_id"`
	State           string   `json:"state"`
	FileUploadID    string   `json:"file_upload_id,omitempty"`
	AudioURL        string   `json:"audio_url,omitempty"`
	FileSizeBytes   int64    `json:"file_size_bytes,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// AttemptStateDTO is the live view of an in-progress attempt's session.
type AttemptStateDTO struct {
	AttemptID          uint                 `json:"attempt_id"`
	TestID             uint                 `json:"test_id"`
	Status             string               `json:"status"`
	StartedAt          time.Time            `json:"started_at"`
	TimeLimitMinutes   *int                 `json:"time_limit_minutes,omitempty"`
	RemainingSeconds   int                  `json:"remaining_seconds"`
	RemainingFormatted string               `json:"remaining_formatted"`
	IsLowTime          bool                 `json:"is_low_time"`
	Answers            []AnswerValueDTO     `json:"answers"`
	SpeakingOutcomes   []SpeakingOutcomeDTO `json:"speaking_outcomes,omitempty"`
}

// RemainingTimeDTO is the lightweight countdown readout for an attempt.
type RemainingTimeDTO struct {
	AttemptID          uint   `json:"attempt_id"`
	RemainingSeconds   int    `json:"remaining_seconds"`
	RemainingFormatted string `json:"remaining_formatted"`
	IsLowTime          bool   `json:"is_low_time"`
	TimerState         string `json:"timer_state"` // "initializing", "running", "expired"
}

// HighlightSpanDTO is one highlight over a section's passage text.
type HighlightSpanDTO struct {
	ID        string `json:"id"`
	TestID    uint   `json:"test_id"`
	SectionID uint   `json:"section_id"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Color     string `json:"color"`
}

// ToolbarDTO reports the highlight toolbar's state after an interaction.
type ToolbarDTO struct {
	State         string  `json:"state"` // "hidden", "add_pending", "remove_pending"
	PendingSpanID string  `json:"pending_span_id,omitempty"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
}

// UploadedSpeakingFileDTO confirms one stored speaking recording.
type UploadedSpeakingFileDTO struct {
	QuestionID      uint      `json:"question_id"`
	FileUploadID    string    `json:"file_upload_id"`
	AudioURL        string    `json:"audio_url"`
	FileSizeBytes   int64     `json:"file_size_bytes"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// SubmitResultDTO is returned by the submit endpoint.
type SubmitResultDTO struct {
	AttemptID     uint                 `json:"attempt_id"`
	Status        string               `json:"status"`
	TotalRawScore *float64             `json:"total_raw_score,omitempty"`
	BandScore     *float64             `json:"band_score,omitempty"`
	FailedUploads []SpeakingOutcomeDTO `json:"failed_uploads,omitempty"`
	RedirectTo    string               `json:"redirect_to,omitempty"`
}

// ResponseDetailDTO is one graded response inside an attempt's results.
type ResponseDetailDTO struct {
	ID           uint                `json:"id"`
	QuestionID   uint                `json:"question_id"`
	Question     QuestionResponseDTO `json:"question,omitempty"`
	ResponseText *string             `json:"response_text,omitempty"`
	ResponseData *string             `json:"response_data,omitempty"`
	AIFeedback   string              `json:"ai_feedback,omitempty"`
	AIScore      *float64            `json:"ai_score,omitempty"`
}

// AttemptDetailDTO is the full result view of an attempt.
type AttemptDetailDTO struct {
	ID              uint                      `json:"id"`
	TestID          uint                      `json:"test_id"`
	TestTitle       string                    `json:"test_title,omitempty"`
	UserID          *uint                     `json:"user_id,omitempty"`
	StartedAt       time.Time                 `json:"started_at"`
	SubmittedAt     *time.Time                `json:"submitted_at,omitempty"`
	Status          string                    `json:"status"`
	TotalRawScore   *float64                  `json:"total_raw_score,omitempty"`
	BandScore       *float64                  `json:"band_score,omitempty"`
	Responses       []ResponseDetailDTO       `json:"responses,omitempty"`
	SpeakingUploads []UploadedSpeakingFileDTO `json:"speaking_uploads,omitempty"`
}

// AttemptSummaryDTO lists one of a user's attempts for a test.
type AttemptSummaryDTO struct {
	ID            uint       `json:"id"`
	TestID        uint       `json:"test_id"`
	UserID        *uint      `json:"user_id,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	Status        string     `json:"status"`
	TotalRawScore *float64   `json:"total_raw_score,omitempty"`
	BandScore     *float64   `json:"band_score,omitempty"`
}
