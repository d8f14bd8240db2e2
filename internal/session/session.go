package session

import (
	"context"
	"time"

	"github.com/lshigami/Sunbirds/internal/highlight"
	"github.com/lshigami/Sunbirds/internal/store"
	"github.com/lshigami/Sunbirds/internal/submission"
	"github.com/rs/zerolog/log"
)

// Params describes the attempt a session is built around.
type Params struct {
	AttemptID           uint
	TestID              uint
	StartedAt           time.Time
	TimeLimitMinutes    *int
	SpeakingQuestionIDs []uint

	FlushInterval    time.Duration
	LowTimeThreshold int
	Clock            func() time.Time
}

// Deps are the collaborators a session composes; all owned elsewhere.
type Deps struct {
	KV       store.KeyValue
	Scoring  submission.ScoringClient
	Uploader submission.AudioUploader
	Nav      submission.Navigator
	Alerter  submission.Alerter
}

// Session orchestrates one in-progress attempt: it restores the answer cache
// on start, runs the countdown whose timeout triggers an automatic
// non-cancelable submission of the last known snapshot, and tears the timer
// and flusher down together so no callback outlives the attempt. Closing a
// session does not clear the durable answers; a student who navigates away
// resumes where they left off.
type Session struct {
	params     Params
	answers    *store.AnswerStore
	timer      *Timer
	highlights *highlight.Engine
	pipeline   *submission.Pipeline
	flusher    *store.Flusher

	// onSubmitted runs after the timeout path's submission succeeds. The
	// registry uses it to release the finished session; a failed auto-submit
	// keeps the session alive so the same retry path as a failed manual
	// submission stays open.
	onSubmitted func()

	// ready is closed once Start has restored the answer cache and begun the
	// countdown. Readers that find the session in the registry wait on it so
	// they never observe a half-started session.
	ready chan struct{}
}

func New(params Params, deps Deps) *Session {
	if params.FlushInterval <= 0 {
		params.FlushInterval = 15 * time.Second
	}
	if params.LowTimeThreshold <= 0 {
		params.LowTimeThreshold = DefaultLowTimeThreshold
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}

	answers := store.NewAnswerStore(deps.KV, params.AttemptID)
	s := &Session{
		params:     params,
		answers:    answers,
		ready:      make(chan struct{}),
		highlights: highlight.NewEngine(),
		pipeline: submission.NewPipeline(
			params.AttemptID,
			answers,
			params.SpeakingQuestionIDs,
			deps.Scoring,
			deps.Uploader,
			deps.Nav,
			deps.Alerter,
		),
	}
	s.timer = NewTimer(params.StartedAt, params.TimeLimitMinutes, s.onTimeout,
		WithClock(params.Clock),
		WithLowTimeThreshold(params.LowTimeThreshold),
	)
	return s
}

// Start restores persisted answers, begins the periodic flush and starts the
// countdown. An attempt resumed past its deadline submits synchronously
// inside Start, exactly once.
func (s *Session) Start(ctx context.Context) map[uint]store.AnswerValue {
	restored := s.answers.Restore(ctx)
	s.flusher = store.StartFlusher(s.answers, s.params.FlushInterval)
	s.timer.Start()
	close(s.ready)
	return restored
}

// onTimeout is the timer's one-shot callback: an automatic, non-cancelable
// submission of whatever answers are in memory. It shares the pipeline's
// reentrancy guard with SubmitNow, so only one of the two paths completes.
func (s *Session) onTimeout() {
	log.Info().Uint("attemptID", s.params.AttemptID).Msg("Time limit reached, auto-submitting attempt")
	if _, err := s.pipeline.Submit(context.Background(), s.answers.Snapshot(), submission.Options{}); err != nil {
		// Same retry path as a failed manual submission; nothing crashes.
		log.Warn().Err(err).Uint("attemptID", s.params.AttemptID).Msg("Timeout-triggered submission did not complete")
		return
	}
	if s.onSubmitted != nil {
		s.onSubmitted()
	}
}

// SubmitNow is the manual submit action, subject to the same reentrancy guard
// as the timeout path.
func (s *Session) SubmitNow(ctx context.Context, opts submission.Options) (*submission.Result, error) {
	return s.pipeline.Submit(ctx, s.answers.Snapshot(), opts)
}

// UpdateAnswer merges one answer into the in-memory cache. Durable
// persistence happens on the flush interval.
func (s *Session) UpdateAnswer(questionID uint, value store.AnswerValue) {
	s.answers.Update(questionID, value)
}

func (s *Session) Snapshot() map[uint]store.AnswerValue {
	return s.answers.Snapshot()
}

// UploadAudio runs one speaking question's independent sub-upload.
func (s *Session) UploadAudio(ctx context.Context, questionID uint, clip submission.AudioClip) (*submission.UploadedFile, error) {
	return s.pipeline.UploadAudio(ctx, questionID, clip)
}

func (s *Session) SpeakingOutcomes() []submission.UploadOutcome {
	return s.pipeline.SpeakingOutcomes()
}

// Highlights exposes the per-session highlight engine.
func (s *Session) Highlights() *highlight.Engine {
	return s.highlights
}

// ResetSection clears every highlight in one section without the engine
// knowing anything about navigation.
func (s *Session) ResetSection(sectionID uint) {
	s.highlights.ClearAll(s.params.TestID, sectionID)
}

func (s *Session) AttemptID() uint { return s.params.AttemptID }
func (s *Session) TestID() uint    { return s.params.TestID }

func (s *Session) Remaining() int { return s.timer.Remaining() }

func (s *Session) IsLowTime() bool { return s.timer.IsLowTime() }

func (s *Session) TimerState() TimerState { return s.timer.State() }

func (s *Session) PipelineState() submission.State { return s.pipeline.State() }

// Close cancels the timer and the flush interval together. The durable
// answer cache is left intact so the attempt can be resumed.
func (s *Session) Close() {
	s.timer.Stop()
	if s.flusher != nil {
		s.flusher.Stop()
	}
}
