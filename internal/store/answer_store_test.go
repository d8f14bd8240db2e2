package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	setErr  error
	setHits int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	val, ok := f.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.setHits++
	f.data[key] = value
	return nil
}

func (f *fakeKV) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeKV) hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setHits
}

func TestAnswerStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()

	s := NewAnswerStore(kv, 42)
	s.Update(1, TextAnswer("B"))
	s.Update(2, StructuredAnswer(map[string]interface{}{"blank1": "x", "blank2": "y"}))
	s.Flush(ctx)

	restored := NewAnswerStore(kv, 42).Restore(ctx)
	assert.Len(t, restored, 2)
	assert.Equal(t, TextAnswer("B"), restored[1])
	assert.Equal(t, AnswerKindStructured, restored[2].Kind)
	assert.Equal(t, "x", restored[2].Structured["blank1"])
	assert.Equal(t, "y", restored[2].Structured["blank2"])
}

func TestAnswerStoreEmptyFlushDoesNotClobber(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()

	first := NewAnswerStore(kv, 7)
	first.Update(3, TextAnswer("kept"))
	first.Flush(ctx)

	// A later session with nothing in memory must not overwrite the
	// previously persisted mapping.
	second := NewAnswerStore(kv, 7)
	second.Flush(ctx)

	restored := NewAnswerStore(kv, 7).Restore(ctx)
	assert.Equal(t, TextAnswer("kept"), restored[3])
}

func TestAnswerStoreRestoreMissing(t *testing.T) {
	s := NewAnswerStore(newFakeKV(), 1)
	assert.Empty(t, s.Restore(context.Background()))
}

func TestAnswerStoreRestoreCorrupt(t *testing.T) {
	kv := newFakeKV()
	kv.data[AnswerKey(9)] = "{not json"

	s := NewAnswerStore(kv, 9)
	assert.Empty(t, s.Restore(context.Background()))

	// The store must stay usable after discarding corrupt data.
	s.Update(1, TextAnswer("ok"))
	s.Flush(context.Background())
	assert.Equal(t, TextAnswer("ok"), NewAnswerStore(kv, 9).Restore(context.Background())[1])
}

func TestAnswerStoreRestoreReadFailure(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")

	s := NewAnswerStore(kv, 5)
	assert.Empty(t, s.Restore(context.Background()))
}

func TestAnswerStoreWriteFailureKeepsMemory(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("out of space")

	s := NewAnswerStore(kv, 5)
	s.Update(1, TextAnswer("A"))
	s.Flush(context.Background())

	assert.Equal(t, TextAnswer("A"), s.Snapshot()[1])
}

func TestAnswerStoreClear(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()

	s := NewAnswerStore(kv, 11)
	s.Update(1, TextAnswer("A"))
	s.Flush(ctx)
	s.Clear(ctx)

	assert.Zero(t, s.Len())
	assert.Empty(t, NewAnswerStore(kv, 11).Restore(ctx))
}

func TestAnswerStoreUpdateMerges(t *testing.T) {
	s := NewAnswerStore(newFakeKV(), 1)
	s.Update(1, TextAnswer("first"))
	s.Update(1, TextAnswer("second"))
	s.Update(2, TextAnswer("other"))

	snap := s.Snapshot()
	assert.Equal(t, "second", snap[1].Text)
	assert.Len(t, snap, 2)
}

func TestFlusherPersistsPeriodically(t *testing.T) {
	kv := newFakeKV()
	s := NewAnswerStore(kv, 3)
	s.Update(1, TextAnswer("A"))

	f := StartFlusher(s, 5*time.Millisecond)
	defer f.Stop()

	deadline := time.After(time.Second)
	for {
		if kv.hits() > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("flusher never persisted the mapping")
		case <-time.After(time.Millisecond):
		}
	}

	restored := NewAnswerStore(kv, 3).Restore(context.Background())
	assert.Equal(t, TextAnswer("A"), restored[1])
}

func TestFlusherStopIsIdempotent(t *testing.T) {
	s := NewAnswerStore(newFakeKV(), 3)
	f := StartFlusher(s, time.Minute)
	f.Stop()
	f.Stop()
}
