package store

import (
	"context"
	"sync"
	"time"
)

// Flusher periodically persists an AnswerStore's in-memory mapping. The store
// itself skips empty flushes, so the ticker can run unconditionally.
type Flusher struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// StartFlusher begins flushing the store every interval until Stop is called.
func StartFlusher(s *AnswerStore, interval time.Duration) *Flusher {
	f := &Flusher{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(f.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Flush(context.Background())
			case <-f.stop:
				return
			}
		}
	}()
	return f
}

// Stop cancels the periodic flush. Safe to call more than once; returns after
// the flush goroutine has exited.
func (f *Flusher) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
	<-f.done
}
