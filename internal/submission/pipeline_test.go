package submission

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lshigami/Sunbirds/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScoring struct {
	calls   int32
	err     error
	release chan struct{} // when set, Submit blocks until closed
	last    Payload
	mu      sync.Mutex
}

func (f *fakeScoring) Submit(_ context.Context, attemptID uint, payload Payload) (*Result, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.last = payload
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Result{AttemptID: attemptID, Status: "completed"}, nil
}

type fakeUploader struct {
	failFor map[uint]error
}

func (f *fakeUploader) Upload(_ context.Context, _ uint, questionID uint, clip AudioClip) (*UploadedFile, error) {
	if err, ok := f.failFor[questionID]; ok {
		return nil, err
	}
	return &UploadedFile{
		FileUploadID:  fmt.Sprintf("file-%d", questionID),
		AudioURL:      fmt.Sprintf("https://cdn.test/audio/%d.webm", questionID),
		FileSizeBytes: clip.SizeBytes,
	}, nil
}

type fakeNav struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeNav) GoTo(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

type fakeAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeAlerter) Alert(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func newTestPipeline(attemptID uint, speaking []uint, scoring *fakeScoring, uploader *fakeUploader) (*Pipeline, *store.AnswerStore, *fakeNav, *fakeAlerter, *memKV) {
	kv := newMemKV()
	answers := store.NewAnswerStore(kv, attemptID)
	nav := &fakeNav{}
	alerter := &fakeAlerter{}
	p := NewPipeline(attemptID, answers, speaking, scoring, uploader, nav, alerter)
	return p, answers, nav, alerter, kv
}

func TestSubmitSuccessClearsStoreAndNavigates(t *testing.T) {
	ctx := context.Background()
	scoring := &fakeScoring{}
	p, answers, nav, _, kv := newTestPipeline(77, nil, scoring, &fakeUploader{})

	answers.Update(1, store.TextAnswer("B"))
	answers.Flush(ctx)

	var got *Result
	result, err := p.Submit(ctx, answers.Snapshot(), Options{OnSuccess: func(r *Result) { got = r }})
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, p.State())
	assert.Same(t, result, got)

	assert.Zero(t, answers.Len(), "in-memory answers must be cleared")
	_, kvErr := kv.Get(ctx, store.AnswerKey(77))
	assert.Equal(t, store.ErrNotFound, kvErr, "durable entry must be removed")

	assert.Equal(t, []string{"/student/tests/results/77"}, nav.paths)
}

func TestSubmitSuppressedNavigation(t *testing.T) {
	ctx := context.Background()
	p, answers, nav, _, _ := newTestPipeline(5, nil, &fakeScoring{}, &fakeUploader{})
	answers.Update(1, store.TextAnswer("A"))

	_, err := p.Submit(ctx, answers.Snapshot(), Options{SuppressNavigation: true})
	require.NoError(t, err)
	assert.Empty(t, nav.paths)
}

func TestSubmitFailureKeepsAnswersAndReturnsToIdle(t *testing.T) {
	ctx := context.Background()
	scoring := &fakeScoring{err: errors.New("backend unavailable")}
	p, answers, nav, alerter, _ := newTestPipeline(9, nil, scoring, &fakeUploader{})

	answers.Update(1, store.TextAnswer("kept"))

	var cbErr error
	_, err := p.Submit(ctx, answers.Snapshot(), Options{OnError: func(e error) { cbErr = e }})
	require.Error(t, err)
	assert.Equal(t, err, cbErr)

	assert.Equal(t, StateIdle, p.State(), "failure must return to Idle for retry")
	assert.Equal(t, "backend unavailable", p.LastError())
	assert.Equal(t, 1, answers.Len(), "answers must survive a failed submit")
	assert.Empty(t, nav.paths)

	require.Len(t, alerter.messages, 1)
	assert.True(t, strings.Contains(alerter.messages[0], "backend unavailable"),
		"alert must carry the underlying failure reason")

	// retry path: same pipeline, now succeeding
	scoring.err = nil
	_, err = p.Submit(ctx, answers.Snapshot(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, p.State())
}

func TestSubmitReentrancyGuard(t *testing.T) {
	ctx := context.Background()
	scoring := &fakeScoring{release: make(chan struct{})}
	p, answers, _, _, _ := newTestPipeline(3, nil, scoring, &fakeUploader{})
	answers.Update(1, store.TextAnswer("A"))

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(ctx, answers.Snapshot(), Options{})
		done <- err
	}()

	// wait for the first submission to reach the backend
	for atomic.LoadInt32(&scoring.calls) == 0 {
		runtime.Gosched()
	}

	_, err := p.Submit(ctx, answers.Snapshot(), Options{})
	assert.Equal(t, ErrSubmissionInFlight, err)

	close(scoring.release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), atomic.LoadInt32(&scoring.calls), "second submit must not reach the backend")

	_, err = p.Submit(ctx, answers.Snapshot(), Options{})
	assert.Equal(t, ErrAlreadySubmitted, err)
}

func TestPartialSpeakingFailureDoesNotBlockSubmit(t *testing.T) {
	ctx := context.Background()
	scoring := &fakeScoring{}
	uploader := &fakeUploader{failFor: map[uint]error{2: errors.New("connection reset")}}
	p, answers, _, _, _ := newTestPipeline(12, []uint{1, 2, 3}, scoring, uploader)

	var wg sync.WaitGroup
	for _, qid := range []uint{1, 2, 3} {
		wg.Add(1)
		go func(qid uint) {
			defer wg.Done()
			_, _ = p.UploadAudio(ctx, qid, AudioClip{Filename: "a.webm", SizeBytes: 1024})
		}(qid)
	}
	wg.Wait()

	answers.Update(1, store.TextAnswer("transcript one"))
	answers.Update(3, store.TextAnswer("transcript three"))

	result, err := p.Submit(ctx, answers.Snapshot(), Options{SuppressNavigation: true})
	require.NoError(t, err, "one failed upload must not block the submission")

	require.Len(t, result.FailedUploads, 1)
	assert.Equal(t, uint(2), result.FailedUploads[0].QuestionID)
	assert.Equal(t, UploadFailed, result.FailedUploads[0].State)
	assert.Equal(t, "connection reset", result.FailedUploads[0].Error)

	scoring.mu.Lock()
	defer scoring.mu.Unlock()
	require.Len(t, scoring.last.Responses, 2)
	assert.Equal(t, "1", scoring.last.Responses[0].QuestionID)
	assert.Equal(t, "3", scoring.last.Responses[1].QuestionID)
}

func TestSpeakingOutcomesTriState(t *testing.T) {
	ctx := context.Background()
	uploader := &fakeUploader{failFor: map[uint]error{2: errors.New("timeout")}}
	p, _, _, _, _ := newTestPipeline(1, []uint{1, 2, 3}, &fakeScoring{}, uploader)

	_, err := p.UploadAudio(ctx, 1, AudioClip{SizeBytes: 10})
	require.NoError(t, err)
	_, err = p.UploadAudio(ctx, 2, AudioClip{SizeBytes: 10})
	require.Error(t, err)
	// question 3 never attempted

	outcomes := p.SpeakingOutcomes()
	require.Len(t, outcomes, 3)
	assert.Equal(t, UploadDone, outcomes[0].State)
	require.NotNil(t, outcomes[0].File)
	assert.Equal(t, "file-1", outcomes[0].File.FileUploadID)
	assert.Equal(t, UploadFailed, outcomes[1].State)
	assert.Equal(t, UploadNotAttempted, outcomes[2].State)
	assert.Nil(t, outcomes[2].File)
}

func TestUploadRetryReplacesFailure(t *testing.T) {
	ctx := context.Background()
	uploader := &fakeUploader{failFor: map[uint]error{4: errors.New("boom")}}
	p, _, _, _, _ := newTestPipeline(1, []uint{4}, &fakeScoring{}, uploader)

	_, err := p.UploadAudio(ctx, 4, AudioClip{})
	require.Error(t, err)
	assert.Equal(t, UploadFailed, p.SpeakingOutcomes()[0].State)

	delete(uploader.failFor, 4)
	file, err := p.UploadAudio(ctx, 4, AudioClip{SizeBytes: 2048})
	require.NoError(t, err)
	assert.Equal(t, "file-4", file.FileUploadID)

	outcome := p.SpeakingOutcomes()[0]
	assert.Equal(t, UploadDone, outcome.State)
	assert.Empty(t, outcome.Error)
}
