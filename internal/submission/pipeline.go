package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lshigami/Sunbirds/internal/store"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSubmitted
)

var (
	// ErrSubmissionInFlight rejects a reentrant submit; exactly one
	// submission may be in flight per attempt.
	ErrSubmissionInFlight = errors.New("submission: already submitting")
	// ErrAlreadySubmitted rejects a submit after the attempt completed.
	ErrAlreadySubmitted = errors.New("submission: attempt already submitted")
	// ErrUploadInFlight rejects a concurrent upload for the same question.
	ErrUploadInFlight = errors.New("submission: upload already in progress for question")
)

// Options control a single Submit call.
type Options struct {
	// SuppressNavigation skips the post-submit redirect.
	SuppressNavigation bool
	OnSuccess          func(*Result)
	OnError            func(error)
}

// Pipeline drives one attempt's answers from the in-memory snapshot to the
// scoring backend: Idle -> Submitting -> Submitted, with failures returning
// to Idle so the user can retry with their answers intact. Speaking audio is
// uploaded per question ahead of the final submit; a failed upload never
// blocks the rest of the test.
type Pipeline struct {
	mu                sync.Mutex
	state             State
	lastError         string
	attemptID         uint
	answers           *store.AnswerStore
	speakingQuestions []uint
	uploads           map[uint]*uploadSlot

	scoring  ScoringClient
	uploader AudioUploader
	nav      Navigator
	alerter  Alerter
}

func NewPipeline(
	attemptID uint,
	answers *store.AnswerStore,
	speakingQuestions []uint,
	scoring ScoringClient,
	uploader AudioUploader,
	nav Navigator,
	alerter Alerter,
) *Pipeline {
	return &Pipeline{
		state:             StateIdle,
		attemptID:         attemptID,
		answers:           answers,
		speakingQuestions: speakingQuestions,
		uploads:           make(map[uint]*uploadSlot),
		scoring:           scoring,
		uploader:          uploader,
		nav:               nav,
		alerter:           alerter,
	}
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastError returns the surfaced reason of the most recent failed submit.
func (p *Pipeline) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastError
}

// Submit transforms the given answer snapshot and sends it to the scoring
// backend. Reentrant calls while a submission is in flight are rejected. On
// success the durable answer cache is cleared, the success callback runs and
// the session navigates to the results view unless suppressed. On failure the
// answers are kept, the error is alerted and the pipeline returns to Idle.
func (p *Pipeline) Submit(ctx context.Context, answers map[uint]store.AnswerValue, opts Options) (*Result, error) {
	p.mu.Lock()
	switch p.state {
	case StateSubmitting:
		p.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case StateSubmitted:
		p.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	p.state = StateSubmitting
	p.lastError = ""
	failedUploads := p.failedUploadsLocked()
	p.mu.Unlock()

	payload := BuildPayload(answers)

	result, err := p.scoring.Submit(ctx, p.attemptID, payload)
	if err != nil {
		p.mu.Lock()
		p.state = StateIdle
		p.lastError = err.Error()
		p.mu.Unlock()

		log.Error().Err(err).Uint("attemptID", p.attemptID).Msg("Submission failed; answers kept for retry")
		if p.alerter != nil {
			p.alerter.Alert(fmt.Sprintf("Failed to submit your test: %s", err.Error()))
		}
		if opts.OnError != nil {
			opts.OnError(err)
		}
		return nil, err
	}

	result.FailedUploads = failedUploads

	// Confirmed submission: the durable cache must not resurrect answers.
	p.answers.Clear(ctx)

	p.mu.Lock()
	p.state = StateSubmitted
	p.mu.Unlock()

	if opts.OnSuccess != nil {
		opts.OnSuccess(result)
	}
	if !opts.SuppressNavigation && p.nav != nil {
		p.nav.GoTo(fmt.Sprintf("/student/tests/results/%d", p.attemptID))
	}
	return result, nil
}
