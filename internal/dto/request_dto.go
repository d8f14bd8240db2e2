package dto

// QuestionForSectionRequest is used when creating questions as part of a new test.
type QuestionForSectionRequest struct {
	Title          string  `json:"title" binding:"required"`
	Prompt         string  `json:"prompt" binding:"required"`
	Type           string  `json:"type" binding:"required,oneof=multiple_choice fill_blank matching essay speaking"`
	OrderInSection int     `json:"order_in_section" binding:"required,min=1"`
	OptionsJSON    *string `json:"options_json"`
	MaxScore       float64 `json:"max_score"`
}

// SectionForTestRequest describes one passage/part of a new test.
type SectionForTestRequest struct {
	Title       string                      `json:"title" binding:"required"`
	OrderInTest int                         `json:"order_in_test" binding:"required,min=1"`
	PassageText string                      `json:"passage_text"`
	AudioURL    *string                     `json:"audio_url"`
	Questions   []QuestionForSectionRequest `json:"questions" binding:"omitempty,dive"`
}

type CreateTestRequest struct {
	Title            string                  `json:"title" binding:"required"`
	Description      string                  `json:"description"`
	Skill            string                  `json:"skill" binding:"required,oneof=reading listening writing speaking"`
	TimeLimitMinutes *int                    `json:"time_limit_minutes" binding:"omitempty,min=1"`
	Sections         []SectionForTestRequest `json:"sections" binding:"omitempty,dive"`
}

// StartAttemptRequest opens (or resumes) an attempt for a test.
type StartAttemptRequest struct {
	UserID *uint `json:"user_id"` // Temporary, for non-auth user identification
}

// AnswerUpdateDTO carries one answer change. Kind fixes the simple/structured
// classification at record time; the matching value field must be set.
type AnswerUpdateDTO struct {
	QuestionID uint                   `json:"question_id" binding:"required"`
	Kind       string                 `json:"kind" binding:"required,oneof=text structured"`
	Text       string                 `json:"text"`
	Data       map[string]interface{} `json:"data"`
}

type SaveAnswersRequest struct {
	Answers []AnswerUpdateDTO `json:"answers" binding:"required,dive"`
}

type SubmitAttemptRequest struct {
	SuppressNavigation bool `json:"suppress_navigation"`
}

// RectDTO is the client-reported bounding rectangle of a selection or span.
type RectDTO struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CommitSelectionRequest reports a committed text selection inside a passage.
type CommitSelectionRequest struct {
	SectionID uint    `json:"section_id" binding:"required"`
	Start     int     `json:"start" binding:"min=0"`
	End       int     `json:"end" binding:"required"`
	Rect      RectDTO `json:"rect"`
}

type AddHighlightRequest struct {
	Color string `json:"color" binding:"required"`
}

type ActivateHighlightRequest struct {
	Rect RectDTO `json:"rect"`
}
