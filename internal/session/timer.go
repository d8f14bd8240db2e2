package session

import (
	"fmt"
	"sync"
	"time"
)

type TimerState int

const (
	TimerInitializing TimerState = iota
	TimerRunning
	TimerExpired
)

// DefaultLowTimeThreshold is the remaining-seconds boundary below which the
// UI shows its low-time warning.
const DefaultLowTimeThreshold = 300

// Timer counts an attempt down from an absolute start time and a time limit.
// Remaining time is always recomputed from the wall clock rather than from a
// tick count, so a throttled or delayed tick cannot accumulate drift beyond
// the tick resolution. The expiry callback fires exactly once, even when
// ticks keep arriving after expiry.
//
// A nil time limit means an untimed attempt: the timer never leaves
// Initializing and no countdown runs.
type Timer struct {
	mu               sync.Mutex
	startTime        time.Time
	timeLimitMinutes *int
	lowTimeThreshold int
	now              func() time.Time
	tickInterval     time.Duration
	onExpire         func()
	state            TimerState
	expired          bool

	stop     chan struct{}
	stopOnce sync.Once
}

type TimerOption func(*Timer)

// WithClock injects a controllable clock. Tests use this instead of real time.
func WithClock(now func() time.Time) TimerOption {
	return func(t *Timer) { t.now = now }
}

func WithTickInterval(d time.Duration) TimerOption {
	return func(t *Timer) { t.tickInterval = d }
}

func WithLowTimeThreshold(seconds int) TimerOption {
	return func(t *Timer) { t.lowTimeThreshold = seconds }
}

func NewTimer(startTime time.Time, timeLimitMinutes *int, onExpire func(), opts ...TimerOption) *Timer {
	t := &Timer{
		startTime:        startTime,
		timeLimitMinutes: timeLimitMinutes,
		lowTimeThreshold: DefaultLowTimeThreshold,
		now:              time.Now,
		tickInterval:     time.Second,
		onExpire:         onExpire,
		state:            TimerInitializing,
		stop:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins the countdown. An attempt resumed after its deadline expires
// immediately: the timeout callback runs synchronously inside Start, once,
// and no tick goroutine is launched. Untimed attempts are a no-op.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.timeLimitMinutes == nil || t.state != TimerInitializing {
		t.mu.Unlock()
		return
	}
	if t.remainingLocked() == 0 {
		t.mu.Unlock()
		t.expire()
		return
	}
	t.state = TimerRunning
	t.mu.Unlock()

	go t.run()
}

func (t *Timer) run() {
	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if t.tick() {
				return
			}
		case <-t.stop:
			return
		}
	}
}

// tick recomputes remaining time and reports whether the timer has expired.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if t.state != TimerRunning {
		t.mu.Unlock()
		return true
	}
	remaining := t.remainingLocked()
	t.mu.Unlock()

	if remaining == 0 {
		t.expire()
		return true
	}
	return false
}

// expire transitions to Expired and fires the callback exactly once.
func (t *Timer) expire() {
	t.mu.Lock()
	if t.expired {
		t.mu.Unlock()
		return
	}
	t.expired = true
	t.state = TimerExpired
	cb := t.onExpire
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Stop cancels the scheduled ticks. It does not fire the expiry callback.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *Timer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Remaining returns the seconds left, never negative. Untimed attempts
// report zero.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

func (t *Timer) remainingLocked() int {
	if t.timeLimitMinutes == nil {
		return 0
	}
	limit := *t.timeLimitMinutes * 60
	elapsed := int(t.now().Sub(t.startTime).Seconds())
	if elapsed >= limit {
		return 0
	}
	return limit - elapsed
}

// IsLowTime reports whether the remaining time is under the warning
// threshold. Derived state only; not a transition.
func (t *Timer) IsLowTime() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timeLimitMinutes == nil {
		return false
	}
	return t.remainingLocked() < t.lowTimeThreshold
}

// FormatRemaining renders seconds as zero-padded MM:SS. Minutes do not roll
// over into hours; test-length durations never need them to.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
