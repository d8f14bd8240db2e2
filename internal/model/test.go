package model

import (
	"time"

	"gorm.io/gorm"
)

type Test struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	Title            string         `json:"title" gorm:"not null;uniqueIndex"` // "IELTS Academic Mock 3"
	Description      string         `json:"description,omitempty"`
	Skill            string         `json:"skill" gorm:"not null"` // "reading", "listening", "writing", "speaking"
	TimeLimitMinutes *int           `json:"time_limit_minutes,omitempty"` // nil = untimed
	Sections         []Section      `json:"sections,omitempty" gorm:"foreignKey:TestID"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
