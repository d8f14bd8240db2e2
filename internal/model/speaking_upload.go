package model

import (
	"time"

	"gorm.io/gorm"
)

// SpeakingUpload records one successfully stored audio recording for a
// speaking question. Immutable once created; a retry inserts a new row that
// replaces the prior one for the same question.
type SpeakingUpload struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	AttemptID       uint           `json:"attempt_id" gorm:"not null;index"`
	QuestionID      uint           `json:"question_id" gorm:"not null;index"`
	FileUploadID    string         `json:"file_upload_id" gorm:"not null;uniqueIndex"` // server-assigned
	AudioURL        string         `json:"audio_url" gorm:"not null"`
	FileSizeBytes   int64          `json:"file_size_bytes"`
	DurationSeconds *float64       `json:"duration_seconds,omitempty"`
	UploadedAt      time.Time      `json:"uploaded_at" gorm:"autoCreateTime"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
