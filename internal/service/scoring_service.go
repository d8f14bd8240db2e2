package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/lshigami/Sunbirds/internal/model"
	"github.com/lshigami/Sunbirds/internal/notify"
	"github.com/lshigami/Sunbirds/internal/repository"
	"github.com/lshigami/Sunbirds/internal/submission"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ScoringService is the scoring backend behind the submission pipeline: it
// persists the transformed responses, fans per-response AI scoring out in
// parallel, and aggregates partial scoring failures without failing the
// attempt.
type ScoringService interface {
	submission.ScoringClient
}

type scoringService struct {
	questionRepo repository.QuestionRepository
	attemptRepo  repository.AttemptRepository
	responseRepo repository.ResponseRepository
	geminiSvc    GeminiLLMService
	converter    ScoreConverterService
	publisher    notify.Publisher
	db           *gorm.DB
}

func NewScoringService(
	questionRepo repository.QuestionRepository,
	attemptRepo repository.AttemptRepository,
	responseRepo repository.ResponseRepository,
	geminiSvc GeminiLLMService,
	converter ScoreConverterService,
	publisher notify.Publisher,
	db *gorm.DB,
) ScoringService {
	return &scoringService{
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		responseRepo: responseRepo,
		geminiSvc:    geminiSvc,
		converter:    converter,
		publisher:    publisher,
		db:           db,
	}
}

// responseScoringResult carries one goroutine's outcome back to the collector.
type responseScoringResult struct {
	response model.Response
	err      error
}

func (s *scoringService) Submit(ctx context.Context, attemptID uint, payload submission.Payload) (*submission.Result, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, fmt.Errorf("attempt not found with ID %d: %w", attemptID, err)
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, fmt.Errorf("attempt %d is %s, not in progress", attemptID, attempt.Status)
	}

	questions, err := s.questionRepo.FindByTestID(attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for test %d: %w", attempt.TestID, err)
	}
	questionMap := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		questionMap[q.ID] = q
	}

	responses := buildResponses(attemptID, payload, questionMap)

	now := time.Now()
	attempt.SubmittedAt = &now
	attempt.Status = model.AttemptStatusSubmitting

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(responses) > 0 {
			if err := tx.Create(&responses).Error; err != nil {
				return fmt.Errorf("failed to persist responses: %w", err)
			}
		}
		return tx.Save(attempt).Error
	})
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Submit: transaction failed persisting responses")
		return nil, err
	}

	attempt.Status = model.AttemptStatusScoring
	if err := s.attemptRepo.Update(attempt); err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("Submit: failed to mark attempt as scoring")
	}

	// AI scoring runs per response in parallel; a failed score never fails
	// the attempt, it only marks the aggregate.
	scorable := make([]model.Response, 0, len(responses))
	for _, resp := range responses {
		q := questionMap[resp.QuestionID]
		if q.Type == model.QuestionTypeEssay || q.Type == model.QuestionTypeSpeaking {
			scorable = append(scorable, resp)
		}
	}

	resultsChan := make(chan responseScoringResult, len(scorable))
	for _, resp := range scorable {
		go func(resp model.Response) {
			question := questionMap[resp.QuestionID]
			answerText := ""
			if resp.ResponseText != nil {
				answerText = *resp.ResponseText
			}

			feedback, score, scoreErr := s.geminiSvc.ScoreAndFeedbackResponse(&question, answerText)
			resp.AIFeedback = feedback
			if scoreErr != nil {
				resp.AIScore = nil
			} else {
				resp.AIScore = &score
			}

			if updateErr := s.responseRepo.Update(&resp); updateErr != nil {
				resultsChan <- responseScoringResult{response: resp, err: updateErr}
				return
			}
			resultsChan <- responseScoringResult{response: resp, err: scoreErr}
		}(resp)
	}

	totalRawScore := 0.0
	scoringErrors := 0
	for range scorable {
		result := <-resultsChan
		if result.err != nil {
			scoringErrors++
			log.Warn().Err(result.err).Uint("questionID", result.response.QuestionID).
				Msg("Submit: response could not be AI-scored")
			continue
		}
		if result.response.AIScore != nil {
			totalRawScore += *result.response.AIScore
		}
	}

	if err := s.finalize(attempt, totalRawScore, len(scorable), scoringErrors); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.Publish(notify.Event{Type: "attempt_scored", AttemptID: attemptID})
	}

	return &submission.Result{
		AttemptID:     attemptID,
		Status:        attempt.Status,
		TotalRawScore: attempt.TotalRawScore,
		BandScore:     attempt.BandScore,
	}, nil
}

// finalize writes the aggregate score and the terminal status. When that
// write fails the attempt is reopened as in_progress: a row left in scoring
// would fail the in-progress precondition on every later retry.
func (s *scoringService) finalize(attempt *model.Attempt, totalRawScore float64, scoredQuestions, scoringErrors int) error {
	attempt.TotalRawScore = &totalRawScore
	if scoredQuestions > 0 {
		band, convErr := s.converter.ConvertToBandScore(totalRawScore, scoredQuestions)
		if convErr != nil {
			log.Warn().Err(convErr).Float64("rawScore", totalRawScore).Msg("Submit: failed to convert band score")
		} else {
			attempt.BandScore = &band
		}
	}

	if scoringErrors > 0 {
		attempt.Status = model.AttemptStatusCompletedWithErrors
	} else {
		attempt.Status = model.AttemptStatusCompleted
	}
	if err := s.attemptRepo.Update(attempt); err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Submit: failed to save final attempt state")
		attempt.Status = model.AttemptStatusInProgress
		attempt.SubmittedAt = nil
		if rbErr := s.attemptRepo.Update(attempt); rbErr != nil {
			log.Error().Err(rbErr).Uint("attemptID", attempt.ID).Msg("Submit: failed to reopen attempt after finalize failure")
		}
		return fmt.Errorf("failed to finalize attempt %d: %w", attempt.ID, err)
	}
	return nil
}

// buildResponses maps wire items onto response rows, dropping answers for
// questions that are not part of the attempt's test.
func buildResponses(attemptID uint, payload submission.Payload, questionMap map[uint]model.Question) []model.Response {
	responses := make([]model.Response, 0, len(payload.Responses))
	for _, item := range payload.Responses {
		qid64, err := strconv.ParseUint(item.QuestionID, 10, 32)
		if err != nil {
			log.Warn().Str("questionID", item.QuestionID).Msg("Submit: unparseable question id, skipping")
			continue
		}
		qid := uint(qid64)
		if _, exists := questionMap[qid]; !exists {
			log.Warn().Uint("questionID", qid).Msg("Submit: answer for a question not in this test, skipping")
			continue
		}

		resp := model.Response{AttemptID: attemptID, QuestionID: qid}
		if item.ResponseText != nil {
			text := *item.ResponseText
			resp.ResponseText = &text
		} else if item.ResponseData != nil {
			raw := encodeResponseData(item.ResponseData)
			resp.ResponseData = &raw
		}
		responses = append(responses, resp)
	}
	return responses
}

func encodeResponseData(data map[string]interface{}) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
