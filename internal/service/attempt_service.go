package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jinzhu/copier"
	"github.com/lshigami/Sunbirds/config"
	"github.com/lshigami/Sunbirds/internal/dto"
	"github.com/lshigami/Sunbirds/internal/highlight"
	"github.com/lshigami/Sunbirds/internal/model"
	"github.com/lshigami/Sunbirds/internal/notify"
	"github.com/lshigami/Sunbirds/internal/repository"
	"github.com/lshigami/Sunbirds/internal/session"
	"github.com/lshigami/Sunbirds/internal/store"
	"github.com/lshigami/Sunbirds/internal/submission"
	"github.com/rs/zerolog/log"
)

// ErrAttemptNotActive is returned for session operations on an attempt that
// is no longer in progress.
var ErrAttemptNotActive = fmt.Errorf("attempt is not in progress")

// AttemptService drives the attempt runtime over HTTP: it opens or resumes
// sessions, records answers and highlights, runs speaking uploads and hands
// the final submission to the pipeline.
type AttemptService interface {
	StartAttempt(testID uint, req dto.StartAttemptRequest) (*dto.AttemptStateDTO, error)
	GetState(attemptID uint) (*dto.AttemptStateDTO, error)
	SaveAnswers(attemptID uint, req dto.SaveAnswersRequest) (*dto.AttemptStateDTO, error)
	Submit(ctx context.Context, attemptID uint, req dto.SubmitAttemptRequest) (*dto.SubmitResultDTO, error)
	UploadAudio(ctx context.Context, attemptID, questionID uint, clip submission.AudioClip) (*dto.UploadedSpeakingFileDTO, error)
	Abandon(attemptID uint) error

	CommitSelection(attemptID uint, req dto.CommitSelectionRequest) (*dto.ToolbarDTO, error)
	AddHighlight(attemptID uint, req dto.AddHighlightRequest) (*dto.HighlightSpanDTO, error)
	ActivateHighlight(attemptID uint, spanID string, req dto.ActivateHighlightRequest) (*dto.ToolbarDTO, error)
	RemoveHighlight(attemptID uint, spanID string) error
	DismissToolbar(attemptID uint) error
	ListHighlights(attemptID, sectionID uint) ([]dto.HighlightSpanDTO, error)
	ClearSectionHighlights(attemptID, sectionID uint) error

	GetRemainingTime(attemptID uint) (*dto.RemainingTimeDTO, error)
	GetResults(attemptID uint) (*dto.AttemptDetailDTO, error)
	GetUserAttempts(testID uint, userID *uint) ([]dto.AttemptSummaryDTO, error)
}

type attemptService struct {
	attemptRepo repository.AttemptRepository
	testRepo    repository.TestRepository
	qRepo       repository.QuestionRepository
	registry    *session.Registry
	publisher   notify.Publisher
	cfg         *config.Config
}

func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	testRepo repository.TestRepository,
	qRepo repository.QuestionRepository,
	registry *session.Registry,
	publisher notify.Publisher,
	cfg *config.Config,
) AttemptService {
	return &attemptService{
		attemptRepo: attemptRepo,
		testRepo:    testRepo,
		qRepo:       qRepo,
		registry:    registry,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// StartAttempt opens a new attempt for the test, or resumes the user's
// in-progress one. Resuming reuses the original deadline; the countdown is
// derived from the stored start time, never reset.
func (s *attemptService) StartAttempt(testID uint, req dto.StartAttemptRequest) (*dto.AttemptStateDTO, error) {
	test, err := s.testRepo.FindByIDWithSections(testID)
	if err != nil {
		return nil, fmt.Errorf("test not found with ID %d: %w", testID, err)
	}

	attempt, err := s.attemptRepo.FindInProgressByTestAndUser(testID, req.UserID)
	if err != nil {
		attempt = &model.Attempt{
			TestID:           testID,
			UserID:           req.UserID,
			StartedAt:        time.Now(),
			TimeLimitMinutes: test.TimeLimitMinutes,
			Status:           model.AttemptStatusInProgress,
		}
		if err := s.attemptRepo.Create(attempt); err != nil {
			return nil, fmt.Errorf("failed to create attempt: %w", err)
		}
		log.Info().Uint("testID", testID).Uint("attemptID", attempt.ID).Msg("Attempt started")
	}

	sess, err := s.acquireSession(attempt)
	if err != nil {
		return nil, err
	}
	for _, section := range test.Sections {
		if section.PassageText != "" {
			sess.Highlights().TrackPassage(testID, section.ID, len(section.PassageText))
		}
	}

	return s.buildState(attempt, sess), nil
}

func (s *attemptService) GetState(attemptID uint) (*dto.AttemptStateDTO, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, fmt.Errorf("attempt not found with ID %d: %w", attemptID, err)
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return &dto.AttemptStateDTO{
			AttemptID:        attempt.ID,
			TestID:           attempt.TestID,
			Status:           attempt.Status,
			StartedAt:        attempt.StartedAt,
			TimeLimitMinutes: attempt.TimeLimitMinutes,
			Answers:          []dto.AnswerValueDTO{},
		}, nil
	}
	sess, err := s.acquireSession(attempt)
	if err != nil {
		return nil, err
	}
	return s.buildState(attempt, sess), nil
}

func (s *attemptService) SaveAnswers(attemptID uint, req dto.SaveAnswersRequest) (*dto.AttemptStateDTO, error) {
	attempt, sess, err := s.activeSession(attemptID)
	if err != nil {
		return nil, err
	}
	for _, a := range req.Answers {
		sess.UpdateAnswer(a.QuestionID, answerValueFromDTO(a))
	}
	return s.buildState(attempt, sess), nil
}

func (s *attemptService) Submit(ctx context.Context, attemptID uint, req dto.SubmitAttemptRequest) (*dto.SubmitResultDTO, error) {
	_, sess, err := s.activeSession(attemptID)
	if err != nil {
		return nil, err
	}

	result, err := sess.SubmitNow(ctx, submission.Options{SuppressNavigation: req.SuppressNavigation})
	if err != nil {
		return nil, err
	}

	s.registry.Release(attemptID)
	if s.publisher != nil {
		s.publisher.Publish(notify.Event{Type: "attempt_submitted", AttemptID: attemptID})
	}

	out := &dto.SubmitResultDTO{
		AttemptID:     result.AttemptID,
		Status:        result.Status,
		TotalRawScore: result.TotalRawScore,
		BandScore:     result.BandScore,
		FailedUploads: outcomesToDTO(result.FailedUploads),
	}
	if !req.SuppressNavigation {
		out.RedirectTo = fmt.Sprintf("/student/tests/results/%d", attemptID)
	}
	return out, nil
}

func (s *attemptService) UploadAudio(ctx context.Context, attemptID, questionID uint, clip submission.AudioClip) (*dto.UploadedSpeakingFileDTO, error) {
	_, sess, err := s.activeSession(attemptID)
	if err != nil {
		return nil, err
	}
	file, err := sess.UploadAudio(ctx, questionID, clip)
	if err != nil {
		return nil, err
	}
	return &dto.UploadedSpeakingFileDTO{
		QuestionID:      questionID,
		FileUploadID:    file.FileUploadID,
		AudioURL:        file.AudioURL,
		FileSizeBytes:   file.FileSizeBytes,
		DurationSeconds: file.DurationSeconds,
		UploadedAt:      time.Now(),
	}, nil
}

// Abandon closes the live session without submitting. Saved answers stay in
// the durable cache, so the attempt resumes where it left off.
func (s *attemptService) Abandon(attemptID uint) error {
	if _, ok := s.registry.Get(attemptID); !ok {
		return ErrAttemptNotActive
	}
	s.registry.Release(attemptID)
	return nil
}

func (s *attemptService) CommitSelection(attemptID uint, req dto.CommitSelectionRequest) (*dto.ToolbarDTO, error) {
	attempt, sess, err := s.activeSession(attemptID)
	if err != nil {
		return nil, err
	}
	sess.Highlights().CommitSelection(highlight.Selection{
		TestID:    attempt.TestID,
		SectionID: req.SectionID,
		Start:     req.Start,
		End:       req.End,
	}, rectFromDTO(req.Rect))
	return toolbarDTO(sess.Highlights()), nil
}

func (s *attemptService) AddHighlight(attemptID uint, req dto.AddHighlightRequest) (*dto.HighlightSpanDTO, error) {
	_, sess, err := s.activeSession(attemptID)
	if err != nil {
		return nil, err
	}
	span, ok := sess.Highlights().AddHighlight(req.Color)
	if !ok {
		return nil, fmt.Errorf("no pending selection to highlight")
	}
	out := spanToDTO(span)
	return &out, nil
}

func (s *attemptService) ActivateHighlight(attemptID uint, spanID string, req dto.ActivateHighlightRequest) (*dto.ToolbarDTO, error) {
	_, sess, err := s.activeSession(attemptID)
	if err != nil {
		return nil, err
	}
	if !sess.Highlights().ActivateSpan(spanID, rectFromDTO(req.Rect)) {
		return nil, fmt.Errorf("highlight not found with ID %s", spanID)
	}
	return toolbarDTO(sess.Highlights()), nil
}

func (s *attemptService) RemoveHighlight(attemptID uint, spanID string) error {
	_, sess, err := s.activeSession(attemptID)
	if err != nil {
		return err
	}
	if !sess.Highlights().RemoveHighlight(spanID) {
		return fmt.Errorf("highlight not found with ID %s", spanID)
	}
	return nil
}

func (s *attemptService) DismissToolbar(attemptID uint) error {
	_, sess, err := s.activeSession(attemptID)
	if err != nil {
		return err
	}
	sess.Highlights().Dismiss()
	return nil
}

func (s *attemptService) ListHighlights(attemptID, sectionID uint) ([]dto.HighlightSpanDTO, error) {
	attempt, sess, err := s.activeSession(attemptID)
	if err != nil {
		return nil, err
	}
	spans := sess.Highlights().Spans(attempt.TestID, sectionID)
	out := make([]dto.HighlightSpanDTO, 0, len(spans))
	for _, sp := range spans {
		out = append(out, spanToDTO(sp))
	}
	return out, nil
}

func (s *attemptService) ClearSectionHighlights(attemptID, sectionID uint) error {
	_, sess, err := s.activeSession(attemptID)
	if err != nil {
		return err
	}
	sess.ResetSection(sectionID)
	return nil
}

// GetRemainingTime is the countdown readout. The value is derived from the
// stored start time on every call, so it is immune to client clock drift.
func (s *attemptService) GetRemainingTime(attemptID uint) (*dto.RemainingTimeDTO, error) {
	_, sess, err := s.activeSession(attemptID)
	if err != nil {
		return nil, err
	}
	return &dto.RemainingTimeDTO{
		AttemptID:          attemptID,
		RemainingSeconds:   sess.Remaining(),
		RemainingFormatted: session.FormatRemaining(sess.Remaining()),
		IsLowTime:          sess.IsLowTime(),
		TimerState:         timerStateName(sess.TimerState()),
	}, nil
}

func timerStateName(s session.TimerState) string {
	switch s {
	case session.TimerRunning:
		return "running"
	case session.TimerExpired:
		return "expired"
	default:
		return "initializing"
	}
}

func (s *attemptService) GetResults(attemptID uint) (*dto.AttemptDetailDTO, error) {
	attempt, err := s.attemptRepo.FindByIDWithDetails(attemptID)
	if err != nil {
		return nil, fmt.Errorf("attempt not found with ID %d: %w", attemptID, err)
	}

	var detail dto.AttemptDetailDTO
	if err := copier.Copy(&detail, attempt); err != nil {
		return nil, fmt.Errorf("failed to map attempt details: %w", err)
	}
	detail.TestTitle = attempt.Test.Title
	return &detail, nil
}

func (s *attemptService) GetUserAttempts(testID uint, userID *uint) ([]dto.AttemptSummaryDTO, error) {
	attempts, err := s.attemptRepo.FindAllByTestAndUser(testID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts for test %d: %w", testID, err)
	}
	out := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for _, a := range attempts {
		var summary dto.AttemptSummaryDTO
		if err := copier.Copy(&summary, &a); err != nil {
			return nil, fmt.Errorf("failed to map attempt summary: %w", err)
		}
		out = append(out, summary)
	}
	return out, nil
}

// acquireSession returns the attempt's live session, resuming from the
// persisted record after a restart or a navigation away.
func (s *attemptService) acquireSession(attempt *model.Attempt) (*session.Session, error) {
	if sess, ok := s.registry.Get(attempt.ID); ok {
		return sess, nil
	}

	speakingIDs, err := s.qRepo.FindSpeakingIDsByTestID(attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load speaking questions for test %d: %w", attempt.TestID, err)
	}
	sess, _ := s.registry.Acquire(session.Params{
		AttemptID:           attempt.ID,
		TestID:              attempt.TestID,
		StartedAt:           attempt.StartedAt,
		TimeLimitMinutes:    attempt.TimeLimitMinutes,
		SpeakingQuestionIDs: speakingIDs,
		FlushInterval:       time.Duration(s.cfg.Attempt.FlushIntervalSeconds) * time.Second,
		LowTimeThreshold:    s.cfg.Attempt.LowTimeThresholdSecs,
	})
	return sess, nil
}

// activeSession loads the attempt and its live session, rejecting attempts
// that already left the in-progress state.
func (s *attemptService) activeSession(attemptID uint) (*model.Attempt, *session.Session, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, nil, fmt.Errorf("attempt not found with ID %d: %w", attemptID, err)
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, nil, ErrAttemptNotActive
	}
	sess, err := s.acquireSession(attempt)
	if err != nil {
		return nil, nil, err
	}
	return attempt, sess, nil
}

func (s *attemptService) buildState(attempt *model.Attempt, sess *session.Session) *dto.AttemptStateDTO {
	snapshot := sess.Snapshot()
	answers := make([]dto.AnswerValueDTO, 0, len(snapshot))
	for qid, value := range snapshot {
		answers = append(answers, answerValueToDTO(qid, value))
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })

	return &dto.AttemptStateDTO{
		AttemptID:          attempt.ID,
		TestID:             attempt.TestID,
		Status:             attempt.Status,
		StartedAt:          attempt.StartedAt,
		TimeLimitMinutes:   attempt.TimeLimitMinutes,
		RemainingSeconds:   sess.Remaining(),
		RemainingFormatted: session.FormatRemaining(sess.Remaining()),
		IsLowTime:          sess.IsLowTime(),
		Answers:            answers,
		SpeakingOutcomes:   outcomesToDTO(sess.SpeakingOutcomes()),
	}
}

func answerValueFromDTO(a dto.AnswerUpdateDTO) store.AnswerValue {
	if a.Kind == store.AnswerKindStructured {
		return store.StructuredAnswer(a.Data)
	}
	return store.TextAnswer(a.Text)
}

func answerValueToDTO(questionID uint, v store.AnswerValue) dto.AnswerValueDTO {
	out := dto.AnswerValueDTO{QuestionID: questionID, Kind: v.Kind}
	if v.IsText() {
		out.Text = v.Text
	} else {
		out.Data = v.Structured
	}
	return out
}

func outcomesToDTO(outcomes []submission.UploadOutcome) []dto.SpeakingOutcomeDTO {
	if len(outcomes) == 0 {
		return nil
	}
	out := make([]dto.SpeakingOutcomeDTO, 0, len(outcomes))
	for _, o := range outcomes {
		d := dto.SpeakingOutcomeDTO{
			QuestionID: o.QuestionID,
			State:      string(o.State),
			Error:      o.Error,
		}
		if o.File != nil {
			d.FileUploadID = o.File.FileUploadID
			d.AudioURL = o.File.AudioURL
			d.FileSizeBytes = o.File.FileSizeBytes
			d.DurationSeconds = o.File.DurationSeconds
		}
		out = append(out, d)
	}
	return out
}

func rectFromDTO(r dto.RectDTO) highlight.Rect {
	return highlight.Rect{Left: r.Left, Top: r.Top, Width: r.Width, Height: r.Height}
}

func spanToDTO(sp highlight.Span) dto.HighlightSpanDTO {
	return dto.HighlightSpanDTO{
		ID:        sp.ID,
		TestID:    sp.TestID,
		SectionID: sp.SectionID,
		Start:     sp.Start,
		End:       sp.End,
		Color:     sp.Color,
	}
}

func toolbarDTO(e *highlight.Engine) *dto.ToolbarDTO {
	pos := e.ToolbarPosition()
	out := &dto.ToolbarDTO{
		PendingSpanID: e.PendingSpanID(),
		X:             pos.X,
		Y:             pos.Y,
	}
	switch e.State() {
	case highlight.ToolbarAddPending:
		out.State = "add_pending"
	case highlight.ToolbarRemovePending:
		out.State = "remove_pending"
	default:
		out.State = "hidden"
	}
	return out
}
