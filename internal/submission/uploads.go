package submission

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
)

// UploadState tracks one speaking question's audio through its independent
// sub-upload. The tri-state distinction between never-attempted and failed is
// deliberate: the scoring backend is told which is which instead of having to
// guess from absence.
type UploadState string

const (
	UploadNotAttempted UploadState = "not_attempted"
	UploadInProgress   UploadState = "uploading"
	UploadDone         UploadState = "uploaded"
	UploadFailed       UploadState = "error"
)

// UploadOutcome is the externally visible state of one speaking question's
// upload slot.
type UploadOutcome struct {
	QuestionID uint          `json:"question_id"`
	State      UploadState   `json:"state"`
	File       *UploadedFile `json:"file,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type uploadSlot struct {
	state UploadState
	file  *UploadedFile
	err   string
}

// UploadAudio stores the recording for one speaking question, tracking the
// slot through uploading -> uploaded/error. Uploads for different questions
// may run concurrently; their state slots are disjoint. A retry after a
// failure — or a re-record after success — replaces the prior outcome.
func (p *Pipeline) UploadAudio(ctx context.Context, questionID uint, clip AudioClip) (*UploadedFile, error) {
	p.mu.Lock()
	slot, ok := p.uploads[questionID]
	if !ok {
		slot = &uploadSlot{state: UploadNotAttempted}
		p.uploads[questionID] = slot
	}
	if slot.state == UploadInProgress {
		p.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	slot.state = UploadInProgress
	slot.err = ""
	p.mu.Unlock()

	file, err := p.uploader.Upload(ctx, p.attemptID, questionID, clip)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		slot.state = UploadFailed
		slot.err = err.Error()
		log.Warn().Err(err).Uint("attemptID", p.attemptID).Uint("questionID", questionID).
			Msg("Speaking upload failed; submission will proceed without it")
		return nil, err
	}
	slot.state = UploadDone
	slot.file = file
	return file, nil
}

// SpeakingOutcomes reports every speaking question's slot, including the ones
// never attempted, ordered by question id.
func (p *Pipeline) SpeakingOutcomes() []UploadOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speakingOutcomesLocked()
}

func (p *Pipeline) speakingOutcomesLocked() []UploadOutcome {
	outcomes := make([]UploadOutcome, 0, len(p.speakingQuestions))
	for _, qid := range p.speakingQuestions {
		slot, ok := p.uploads[qid]
		if !ok {
			outcomes = append(outcomes, UploadOutcome{QuestionID: qid, State: UploadNotAttempted})
			continue
		}
		outcomes = append(outcomes, UploadOutcome{
			QuestionID: qid,
			State:      slot.state,
			File:       slot.file,
			Error:      slot.err,
		})
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].QuestionID < outcomes[j].QuestionID })
	return outcomes
}

func (p *Pipeline) failedUploadsLocked() []UploadOutcome {
	var failed []UploadOutcome
	for _, o := range p.speakingOutcomesLocked() {
		if o.State == UploadFailed {
			failed = append(failed, o)
		}
	}
	return failed
}
