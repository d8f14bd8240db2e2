package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lshigami/Sunbirds/config"
	"github.com/lshigami/Sunbirds/internal/model"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// GeminiLLMService scores free-form answers: essay text for writing
// questions, the recorded transcript for speaking questions.
type GeminiLLMService interface {
	ScoreAndFeedbackResponse(question *model.Question, answerText string) (feedback string, score float64, err error)
}

type geminiLLMService struct {
	client *genai.GenerativeModel
	cfg    *config.Config
}

func NewGeminiLLMService(cfg *config.Config) (GeminiLLMService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. GeminiLLMService will be non-functional.")
		return &geminiLLMService{cfg: cfg, client: nil}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	model := client.GenerativeModel("gemini-1.5-flash")
	return &geminiLLMService{client: model, cfg: cfg}, nil
}

func (s *geminiLLMService) ScoreAndFeedbackResponse(question *model.Question, answerText string) (string, float64, error) {
	if s.client == nil {
		return "AI scoring is not configured.", 0, fmt.Errorf("gemini client not initialized")
	}
	if strings.TrimSpace(answerText) == "" {
		return "No answer was provided for this question.", 0, nil
	}

	prompt := buildScoringPrompt(question, answerText)

	resp, err := s.client.GenerateContent(context.Background(), genai.Text(prompt))
	if err != nil {
		return "", 0, fmt.Errorf("gemini request failed for question %d: %w", question.ID, err)
	}
	raw := collectText(resp)
	if raw == "" {
		return "", 0, fmt.Errorf("gemini returned an empty response for question %d", question.ID)
	}

	scoreStr, feedback, err := parseScoreAndFeedback(raw)
	if err != nil {
		log.Warn().Err(err).Uint("questionID", question.ID).Msg("Could not parse score from Gemini response")
		return feedback, 0, err
	}
	score, err := strconv.ParseFloat(scoreStr, 64)
	if err != nil {
		return feedback, 0, fmt.Errorf("unparseable score %q from Gemini: %w", scoreStr, err)
	}
	if score < 0 {
		score = 0
	}
	if score > question.MaxScore && question.MaxScore > 0 {
		score = question.MaxScore
	}
	return feedback, score, nil
}

func buildScoringPrompt(question *model.Question, answerText string) string {
	var b strings.Builder
	switch question.Type {
	case model.QuestionTypeSpeaking:
		b.WriteString("You are an IELTS speaking examiner. Score the candidate's transcribed answer on a 0-9 band scale.\n")
	case model.QuestionTypeEssay:
		b.WriteString("You are an IELTS writing examiner. Score the candidate's essay on a 0-9 band scale.\n")
	default:
		b.WriteString("You are an IELTS examiner. Score the candidate's answer on a 0-9 band scale.\n")
	}
	fmt.Fprintf(&b, "Task: %s\n", question.Title)
	fmt.Fprintf(&b, "Prompt: %s\n", question.Prompt)
	fmt.Fprintf(&b, "Candidate answer:\n%s\n\n", answerText)
	b.WriteString("Reply in exactly this format:\nScore: <number>\nFeedback: <two to four sentences of specific feedback>\n")
	return b.String()
}

func collectText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func parseScoreAndFeedback(rawResponse string) (scoreStr string, feedbackStr string, err error) {
	scorePrefix := "Score:"
	feedbackPrefix := "Feedback:"

	scoreIndex := strings.Index(rawResponse, scorePrefix)
	feedbackIndex := strings.Index(rawResponse, feedbackPrefix)

	if scoreIndex == -1 {
		return "", rawResponse, fmt.Errorf("response does not contain 'Score:' prefix")
	}

	endOfScoreLine := strings.Index(rawResponse[scoreIndex:], "\n")
	if endOfScoreLine == -1 {
		scoreStr = strings.TrimSpace(rawResponse[scoreIndex+len(scorePrefix):])
	} else {
		scoreStr = strings.TrimSpace(rawResponse[scoreIndex+len(scorePrefix) : scoreIndex+endOfScoreLine])
	}

	if feedbackIndex != -1 && feedbackIndex > scoreIndex {
		feedbackStr = strings.TrimSpace(rawResponse[feedbackIndex+len(feedbackPrefix):])
	} else if endOfScoreLine != -1 && len(rawResponse) > scoreIndex+endOfScoreLine+1 {
		feedbackStr = strings.TrimSpace(rawResponse[scoreIndex+endOfScoreLine+1:])
		if strings.HasPrefix(strings.ToLower(feedbackStr), "feedback:") {
			feedbackStr = strings.TrimSpace(feedbackStr[len(feedbackPrefix):])
		}
	} else {
		feedbackStr = "Feedback not found in the expected format after the score."
	}

	return scoreStr, feedbackStr, nil
}
