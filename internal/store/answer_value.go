package store

import "encoding/json"

const (
	AnswerKindText       = "text"
	AnswerKindStructured = "structured"
)

// AnswerValue is a tagged union recorded at the moment the user answers a
// question: plain text for simple questions, an object for multi-blank,
// matching and diagram questions. The tag is fixed when the answer is
// recorded so an empty string and an empty object stay distinguishable all
// the way to the wire payload.
type AnswerValue struct {
	Kind       string                 `json:"kind"`
	Text       string                 `json:"text,omitempty"`
	Structured map[string]interface{} `json:"structured,omitempty"`
}

func TextAnswer(text string) AnswerValue {
	return AnswerValue{Kind: AnswerKindText, Text: text}
}

func StructuredAnswer(data map[string]interface{}) AnswerValue {
	return AnswerValue{Kind: AnswerKindStructured, Structured: data}
}

func (v AnswerValue) IsText() bool {
	return v.Kind == AnswerKindText
}

// StructuredJSON renders the structured payload as a JSON string for
// persistence. Returns "" for text answers.
func (v AnswerValue) StructuredJSON() string {
	if v.Kind != AnswerKindStructured {
		return ""
	}
	raw, err := json.Marshal(v.Structured)
	if err != nil {
		return ""
	}
	return string(raw)
}
