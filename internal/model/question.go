package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeFillBlank      = "fill_blank"
	QuestionTypeMatching       = "matching"
	QuestionTypeEssay          = "essay"
	QuestionTypeSpeaking       = "speaking"
)

type Question struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	SectionID      uint           `json:"section_id" gorm:"not null;index"`
	Title          string         `json:"title" gorm:"not null"`
	Prompt         string         `json:"prompt" gorm:"type:text;not null"`
	Type           string         `json:"type" gorm:"not null"`
	OrderInSection int            `json:"order_in_section" gorm:"not null"`
	OptionsJSON    *string        `json:"options_json,omitempty" gorm:"type:text"` // choices / matching pairs, opaque to the runtime
	MaxScore       float64        `json:"max_score,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
