package model

import (
	"time"

	"gorm.io/gorm"
)

// Section is one scoped portion of a test: a reading passage, a listening part,
// a writing task or a speaking part. Highlights and question groups are scoped
// to a section, never shared across sections.
type Section struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	TestID      uint           `json:"test_id" gorm:"not null;index"`
	Title       string         `json:"title" gorm:"not null"`
	OrderInTest int            `json:"order_in_test" gorm:"not null"`
	PassageText string         `json:"passage_text,omitempty" gorm:"type:text"` // reading passage / listening transcript
	AudioURL    *string        `json:"audio_url,omitempty"`                     // listening section audio
	Questions   []Question     `json:"questions,omitempty" gorm:"foreignKey:SectionID"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
