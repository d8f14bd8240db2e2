package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry holds the live session for every in-progress attempt in this
// process. Exactly one session exists per attempt id at a time.
type Registry struct {
	mu       sync.Mutex
	sessions map[uint]*Session
	deps     Deps
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		sessions: make(map[uint]*Session),
		deps:     deps,
	}
}

// Acquire returns the attempt's live session, creating and starting one from
// params when none exists. The boolean reports whether a new session was
// created.
func (r *Registry) Acquire(params Params) (*Session, bool) {
	r.mu.Lock()
	if s, ok := r.sessions[params.AttemptID]; ok {
		r.mu.Unlock()
		<-s.ready
		return s, false
	}
	s := New(params, r.deps)
	s.onSubmitted = func() { r.Release(params.AttemptID) }
	r.sessions[params.AttemptID] = s
	r.mu.Unlock()

	// Start outside the lock: an already-expired attempt submits
	// synchronously inside Start.
	s.Start(context.Background())
	log.Debug().Uint("attemptID", params.AttemptID).Msg("Attempt session started")
	return s, true
}

// Get returns the live session for an attempt, if any. A session mid-Start is
// waited for rather than returned half-initialized.
func (r *Registry) Get(attemptID uint) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[attemptID]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	<-s.ready
	return s, true
}

// Release closes and forgets the attempt's session. The durable answer cache
// is untouched; clearing it is the submission pipeline's job.
func (r *Registry) Release(attemptID uint) {
	r.mu.Lock()
	s, ok := r.sessions[attemptID]
	delete(r.sessions, attemptID)
	r.mu.Unlock()

	if ok {
		s.Close()
		log.Debug().Uint("attemptID", attemptID).Msg("Attempt session released")
	}
}
