package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lshigami/Sunbirds/internal/highlight"
	"github.com/lshigami/Sunbirds/internal/store"
	"github.com/lshigami/Sunbirds/internal/submission"
)

func highlightSelection(testID, sectionID uint, start, end int) highlight.Selection {
	return highlight.Selection{TestID: testID, SectionID: sectionID, Start: start, End: end}
}

func rect() highlight.Rect {
	return highlight.Rect{Left: 10, Top: 50, Width: 40, Height: 16}
}

type countingScoring struct {
	calls   int32
	err     error
	release chan struct{}
}

func (c *countingScoring) Submit(_ context.Context, attemptID uint, _ submission.Payload) (*submission.Result, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.release != nil {
		<-c.release
	}
	if c.err != nil {
		return nil, c.err
	}
	return &submission.Result{AttemptID: attemptID, Status: "completed"}, nil
}

type nopUploader struct{}

func (nopUploader) Upload(_ context.Context, _, questionID uint, _ submission.AudioClip) (*submission.UploadedFile, error) {
	return &submission.UploadedFile{FileUploadID: "f", AudioURL: "u"}, nil
}

type nopNav struct{}

func (nopNav) GoTo(string) {}

type nopAlerter struct{}

func (nopAlerter) Alert(string) {}

type mapKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapKV() *mapKV { return &mapKV{data: map[string]string{}} }

func (m *mapKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *mapKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func testDeps(kv store.KeyValue, scoring submission.ScoringClient) Deps {
	return Deps{KV: kv, Scoring: scoring, Uploader: nopUploader{}, Nav: nopNav{}, Alerter: nopAlerter{}}
}

func TestExpiredAttemptAutoSubmitsOnceOnStart(t *testing.T) {
	now := time.Now()
	scoring := &countingScoring{}
	kv := newMapKV()

	// answers persisted by an earlier session of the same attempt
	prior := store.NewAnswerStore(kv, 50)
	prior.Update(1, store.TextAnswer("B"))
	prior.Flush(context.Background())

	s := New(Params{
		AttemptID:        50,
		TestID:           1,
		StartedAt:        now.Add(-61 * time.Minute),
		TimeLimitMinutes: intPtr(60),
		Clock:            func() time.Time { return now },
	}, testDeps(kv, scoring))
	defer s.Close()

	s.Start(context.Background())

	if got := atomic.LoadInt32(&scoring.calls); got != 1 {
		t.Fatalf("auto-submit calls = %d, want 1", got)
	}
	if s.TimerState() != TimerExpired {
		t.Errorf("TimerState() = %v, want TimerExpired", s.TimerState())
	}

	// manual submit after the timeout path completed is rejected
	if _, err := s.SubmitNow(context.Background(), submission.Options{}); err != submission.ErrAlreadySubmitted {
		t.Errorf("SubmitNow() error = %v, want ErrAlreadySubmitted", err)
	}
	if got := atomic.LoadInt32(&scoring.calls); got != 1 {
		t.Errorf("backend calls after manual retry = %d, want 1", got)
	}
}

func TestTimeoutAndManualSubmitShareGuard(t *testing.T) {
	scoring := &countingScoring{release: make(chan struct{})}
	s := New(Params{
		AttemptID:        7,
		TestID:           1,
		StartedAt:        time.Now(),
		TimeLimitMinutes: intPtr(60),
	}, testDeps(newMapKV(), scoring))
	defer s.Close()
	s.Start(context.Background())

	s.UpdateAnswer(1, store.TextAnswer("A"))

	done := make(chan error, 1)
	go func() {
		_, err := s.SubmitNow(context.Background(), submission.Options{})
		done <- err
	}()
	for atomic.LoadInt32(&scoring.calls) == 0 {
		time.Sleep(time.Millisecond)
	}

	// a timeout firing while the manual submit is in flight must be a no-op
	s.onTimeout()

	close(scoring.release)
	if err := <-done; err != nil {
		t.Fatalf("manual submit failed: %v", err)
	}
	if got := atomic.LoadInt32(&scoring.calls); got != 1 {
		t.Fatalf("backend calls = %d, want exactly 1", got)
	}
}

func TestCloseWithoutSubmitKeepsDurableAnswers(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV()
	scoring := &countingScoring{}

	s := New(Params{
		AttemptID:        9,
		TestID:           2,
		StartedAt:        time.Now(),
		TimeLimitMinutes: intPtr(60),
		FlushInterval:    5 * time.Millisecond,
	}, testDeps(kv, scoring))
	s.Start(ctx)

	s.UpdateAnswer(3, store.TextAnswer("draft"))

	deadline := time.After(time.Second)
	for {
		if _, err := kv.Get(ctx, store.AnswerKey(9)); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("answers never flushed")
		case <-time.After(time.Millisecond):
		}
	}

	// navigate away: session torn down, durable answers untouched
	s.Close()

	resumed := New(Params{
		AttemptID:        9,
		TestID:           2,
		StartedAt:        time.Now(),
		TimeLimitMinutes: intPtr(60),
	}, testDeps(kv, scoring))
	defer resumed.Close()

	restored := resumed.Start(ctx)
	if got := restored[3]; got.Kind != store.AnswerKindText || got.Text != "draft" {
		t.Fatalf("restored answer = %+v, want draft text answer", got)
	}
	if atomic.LoadInt32(&scoring.calls) != 0 {
		t.Error("no submission should have happened")
	}
}

func TestTimeoutSubmitFailureLeavesRetryPath(t *testing.T) {
	now := time.Now()
	scoring := &countingScoring{err: errors.New("scoring backend down")}

	s := New(Params{
		AttemptID:        4,
		TestID:           1,
		StartedAt:        now.Add(-2 * time.Hour),
		TimeLimitMinutes: intPtr(60),
		Clock:            func() time.Time { return now },
	}, testDeps(newMapKV(), scoring))
	defer s.Close()
	s.Start(context.Background())

	if s.PipelineState() != submission.StateIdle {
		t.Fatalf("PipelineState() = %v, want StateIdle after failed auto-submit", s.PipelineState())
	}

	// the user retries manually once the backend is back
	scoring.err = nil
	if _, err := s.SubmitNow(context.Background(), submission.Options{}); err != nil {
		t.Fatalf("manual retry failed: %v", err)
	}
	if got := atomic.LoadInt32(&scoring.calls); got != 2 {
		t.Errorf("backend calls = %d, want 2", got)
	}
}

func TestRegistryOneSessionPerAttempt(t *testing.T) {
	r := NewRegistry(testDeps(newMapKV(), &countingScoring{}))

	params := Params{AttemptID: 21, TestID: 3, StartedAt: time.Now(), TimeLimitMinutes: intPtr(30)}
	s1, created := r.Acquire(params)
	if !created {
		t.Fatal("first Acquire must create the session")
	}
	s2, created := r.Acquire(params)
	if created || s1 != s2 {
		t.Fatal("second Acquire must return the existing session")
	}

	r.Release(21)
	if _, ok := r.Get(21); ok {
		t.Fatal("released session still present")
	}

	_, created = r.Acquire(params)
	if !created {
		t.Fatal("Acquire after Release must create a fresh session")
	}
	r.Release(21)
}

func TestRegistryReleasesTimedOutSession(t *testing.T) {
	now := time.Now()
	scoring := &countingScoring{}
	r := NewRegistry(testDeps(newMapKV(), scoring))

	params := Params{
		AttemptID:        77,
		TestID:           1,
		StartedAt:        now.Add(-90 * time.Minute),
		TimeLimitMinutes: intPtr(60),
		Clock:            func() time.Time { return now },
	}
	s, created := r.Acquire(params)
	if !created {
		t.Fatal("Acquire must create the session")
	}
	if got := atomic.LoadInt32(&scoring.calls); got != 1 {
		t.Fatalf("auto-submit calls = %d, want 1", got)
	}
	if s.PipelineState() != submission.StateSubmitted {
		t.Errorf("PipelineState() = %v, want StateSubmitted", s.PipelineState())
	}

	// the finished session must not linger in the registry
	if _, ok := r.Get(77); ok {
		t.Fatal("submitted session still registered after timeout")
	}
}

func TestRegistryKeepsSessionWhenTimeoutSubmitFails(t *testing.T) {
	now := time.Now()
	scoring := &countingScoring{err: errors.New("scoring backend down")}
	r := NewRegistry(testDeps(newMapKV(), scoring))

	params := Params{
		AttemptID:        78,
		TestID:           1,
		StartedAt:        now.Add(-90 * time.Minute),
		TimeLimitMinutes: intPtr(60),
		Clock:            func() time.Time { return now },
	}
	if _, created := r.Acquire(params); !created {
		t.Fatal("Acquire must create the session")
	}

	// a failed auto-submit keeps the session around for a manual retry
	s, ok := r.Get(78)
	if !ok {
		t.Fatal("session with a failed auto-submit must stay registered")
	}
	scoring.err = nil
	if _, err := s.SubmitNow(context.Background(), submission.Options{}); err != nil {
		t.Fatalf("manual retry failed: %v", err)
	}
	r.Release(78)
}

// gateKV delays every read until the gate opens, pinning a session inside its
// restore phase.
type gateKV struct {
	*mapKV
	gate  chan struct{}
	reads int32
}

func (g *gateKV) Get(ctx context.Context, key string) (string, error) {
	atomic.AddInt32(&g.reads, 1)
	<-g.gate
	return g.mapKV.Get(ctx, key)
}

func TestAcquireWaitsForSessionRestore(t *testing.T) {
	kv := newMapKV()
	prior := store.NewAnswerStore(kv, 31)
	prior.Update(6, store.TextAnswer("C"))
	prior.Flush(context.Background())

	g := &gateKV{mapKV: kv, gate: make(chan struct{})}
	r := NewRegistry(testDeps(g, &countingScoring{}))
	params := Params{AttemptID: 31, TestID: 2, StartedAt: time.Now(), TimeLimitMinutes: intPtr(60)}

	go r.Acquire(params)
	for atomic.LoadInt32(&g.reads) == 0 {
		time.Sleep(time.Millisecond)
	}

	got := make(chan *Session, 1)
	go func() {
		s, _ := r.Acquire(params)
		got <- s
	}()

	select {
	case <-got:
		t.Fatal("second Acquire returned before the restore finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(g.gate)
	s := <-got
	defer r.Release(31)
	if v := s.Snapshot()[6]; v.Kind != store.AnswerKindText || v.Text != "C" {
		t.Fatalf("answer visible to second caller = %+v, want restored text answer C", v)
	}
}

func TestResetSectionClearsOnlyThatSection(t *testing.T) {
	s := New(Params{AttemptID: 1, TestID: 5, StartedAt: time.Now()}, testDeps(newMapKV(), &countingScoring{}))
	defer s.Close()

	eng := s.Highlights()
	eng.TrackPassage(5, 1, 100)
	eng.TrackPassage(5, 2, 100)

	eng.CommitSelection(highlightSelection(5, 1, 0, 10), rect())
	eng.AddHighlight("yellow")
	eng.CommitSelection(highlightSelection(5, 2, 0, 10), rect())
	eng.AddHighlight("green")

	s.ResetSection(1)

	if n := len(eng.Spans(5, 1)); n != 0 {
		t.Errorf("section 1 spans = %d, want 0", n)
	}
	if n := len(eng.Spans(5, 2)); n != 1 {
		t.Errorf("section 2 spans = %d, want 1", n)
	}
}
