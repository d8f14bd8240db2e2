package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// AnswerKey returns the namespaced durable key for an attempt's answers.
func AnswerKey(attemptID uint) string {
	return fmt.Sprintf("testAnswers_%d", attemptID)
}

// AnswerStore is the durable, per-attempt cache of question -> answer. Writes
// go through Update into memory only; Flush persists the whole mapping
// atomically. The durable medium is best-effort: read and write failures
// degrade to in-memory-only operation and are never surfaced to callers.
type AnswerStore struct {
	mu        sync.Mutex
	kv        KeyValue
	attemptID uint
	answers   map[uint]AnswerValue
}

func NewAnswerStore(kv KeyValue, attemptID uint) *AnswerStore {
	return &AnswerStore{
		kv:        kv,
		attemptID: attemptID,
		answers:   make(map[uint]AnswerValue),
	}
}

func (s *AnswerStore) AttemptID() uint {
	return s.attemptID
}

// Restore loads the persisted mapping for the attempt into memory and returns
// a copy. Missing or corrupt durable data is treated as "no prior answers".
func (s *AnswerStore) Restore(ctx context.Context) map[uint]AnswerValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := AnswerKey(s.attemptID)
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if err != ErrNotFound {
			log.Warn().Err(err).Str("key", key).Msg("AnswerStore: durable read failed, starting empty")
		}
		s.answers = make(map[uint]AnswerValue)
		return s.snapshotLocked()
	}

	decoded, err := decodeAnswers(raw)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("AnswerStore: corrupt persisted answers discarded")
		s.answers = make(map[uint]AnswerValue)
		return s.snapshotLocked()
	}

	s.answers = decoded
	return s.snapshotLocked()
}

// Update merges one answer into the in-memory mapping. It does not write
// through to the durable medium; persistence happens on the next Flush.
func (s *AnswerStore) Update(questionID uint, value AnswerValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[questionID] = value
}

// Snapshot returns a copy of the current in-memory mapping.
func (s *AnswerStore) Snapshot() map[uint]AnswerValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *AnswerStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// Flush serializes the full mapping to the durable medium, replacing the
// previous value atomically. An empty mapping is a no-op so a fresh session
// never clobbers answers persisted by an earlier one. Write failures are
// swallowed: memory stays the source of truth for this session.
func (s *AnswerStore) Flush(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.answers) == 0 {
		return
	}

	raw, err := encodeAnswers(s.answers)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", s.attemptID).Msg("AnswerStore: failed to serialize answers for flush")
		return
	}
	if err := s.kv.Set(ctx, AnswerKey(s.attemptID), raw); err != nil {
		log.Warn().Err(err).Uint("attemptID", s.attemptID).Msg("AnswerStore: durable write failed, keeping in-memory state")
	}
}

// Clear deletes the durable entry and empties the in-memory mapping. Called
// after a confirmed submission or an explicit reset.
func (s *AnswerStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, AnswerKey(s.attemptID)); err != nil {
		log.Warn().Err(err).Uint("attemptID", s.attemptID).Msg("AnswerStore: durable remove failed")
	}
	s.answers = make(map[uint]AnswerValue)
}

func (s *AnswerStore) snapshotLocked() map[uint]AnswerValue {
	out := make(map[uint]AnswerValue, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

func encodeAnswers(answers map[uint]AnswerValue) (string, error) {
	// JSON object keys are strings; question ids are encoded decimal.
	m := make(map[string]AnswerValue, len(answers))
	for id, v := range answers {
		m[strconv.FormatUint(uint64(id), 10)] = v
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeAnswers(raw string) (map[uint]AnswerValue, error) {
	var m map[string]AnswerValue
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	out := make(map[uint]AnswerValue, len(m))
	for key, v := range m {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid question id %q: %w", key, err)
		}
		out[uint(id)] = v
	}
	return out, nil
}
