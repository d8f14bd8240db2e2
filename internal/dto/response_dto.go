package dto

import "time"

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type QuestionResponseDTO struct {
	ID             uint    `json:"id"`
	SectionID      uint    `json:"section_id"`
	Title          string  `json:"title"`
	Prompt         string  `json:"prompt"`
	Type           string  `json:"type"`
	OrderInSection int     `json:"order_in_section"`
	OptionsJSON    *string `json:"options_json,omitempty"`
	MaxScore       float64 `json:"max_score"`
}

type SectionResponseDTO struct {
	ID          uint                  `json:"id"`
	TestID      uint                  `json:"test_id"`
	Title       string                `json:"title"`
	OrderInTest int                   `json:"order_in_test"`
	PassageText string                `json:"passage_text,omitempty"`
	AudioURL    *string               `json:"audio_url,omitempty"`
	Questions   []QuestionResponseDTO `json:"questions,omitempty"`
}

type TestResponseDTO struct {
	ID               uint                 `json:"id"`
	Title            string               `json:"title"`
	Description      string               `json:"description,omitempty"`
	Skill            string               `json:"skill"`
	TimeLimitMinutes *int                 `json:"time_limit_minutes,omitempty"`
	Sections         []SectionResponseDTO `json:"sections,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

type TestSummaryDTO struct {
	ID               uint      `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Skill            string    `json:"skill"`
	TimeLimitMinutes *int      `json:"time_limit_minutes,omitempty"`
	QuestionCount    int       `json:"question_count"`
	CreatedAt        time.Time `json:"created_at"`
}
