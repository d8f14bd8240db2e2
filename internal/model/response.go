package model

import (
	"time"

	"gorm.io/gorm"
)

// Response is the persisted per-question outcome of a submitted attempt.
// Exactly one of ResponseText/ResponseData is set, decided when the answer was
// recorded (simple vs structured), never inferred at submission time.
type Response struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	AttemptID    uint           `json:"attempt_id" gorm:"not null;index"`
	QuestionID   uint           `json:"question_id" gorm:"not null;index"`
	Question     Question       `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	ResponseText *string        `json:"response_text,omitempty" gorm:"type:text"`
	ResponseData *string        `json:"response_data,omitempty" gorm:"type:text"` // JSON object for multi-blank/matching answers
	AIFeedback   string         `json:"ai_feedback,omitempty" gorm:"type:text"`
	AIScore      *float64       `json:"ai_score,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
