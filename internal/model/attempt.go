package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusSubmitting = "submitting"
	AttemptStatusScoring    = "scoring"
	AttemptStatusCompleted  = "completed"
	// AttemptStatusCompletedWithErrors marks attempts where at least one
	// response could not be AI-scored; the totals cover what succeeded.
	AttemptStatusCompletedWithErrors = "completed_with_errors"
)

// Attempt is one student's timed instance of taking a specific test. It is the
// root entity of the attempt runtime: the session registry, the answer cache
// key namespace and the submission pipeline are all keyed by its ID.
type Attempt struct {
	ID               uint             `gorm:"primarykey" json:"id"`
	TestID           uint             `json:"test_id" gorm:"not null;index"`
	Test             Test             `json:"test,omitempty" gorm:"foreignKey:TestID"`
	UserID           *uint            `json:"user_id,omitempty" gorm:"index"`
	StartedAt        time.Time        `json:"started_at" gorm:"not null"`
	TimeLimitMinutes *int             `json:"time_limit_minutes,omitempty"` // snapshot of the test's limit at start
	SubmittedAt      *time.Time       `json:"submitted_at,omitempty"`
	Status           string           `json:"status" gorm:"default:'in_progress'"`
	TotalRawScore    *float64         `json:"total_raw_score,omitempty"`
	BandScore        *float64         `json:"band_score,omitempty"`
	Responses        []Response       `json:"responses,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	SpeakingUploads  []SpeakingUpload `json:"speaking_uploads,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`
}
