package session

import (
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestTimerExpiredAtStart(t *testing.T) {
	now := time.Now()
	start := now.Add(-61 * time.Minute)

	fired := 0
	tm := NewTimer(start, intPtr(60), func() { fired++ }, WithClock(func() time.Time { return now }))
	tm.Start()

	if fired != 1 {
		t.Fatalf("expiry callback fired %d times, want 1", fired)
	}
	if got := tm.Remaining(); got != 0 {
		t.Errorf("Remaining() = %d, want 0", got)
	}
	if tm.State() != TimerExpired {
		t.Errorf("State() = %v, want TimerExpired", tm.State())
	}
}

func TestTimerUntimedNeverRuns(t *testing.T) {
	tm := NewTimer(time.Now(), nil, func() { t.Fatal("untimed timer must not expire") })
	tm.Start()

	if tm.State() != TimerInitializing {
		t.Errorf("State() = %v, want TimerInitializing", tm.State())
	}
	if tm.IsLowTime() {
		t.Error("untimed timer reported low time")
	}
	tm.Stop()
}

func TestTimerRemainingMonotonic(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	current := start

	tm := NewTimer(start, intPtr(1), nil, WithClock(func() time.Time { return current }))

	prev := tm.Remaining()
	for i := 0; i < 90; i++ {
		current = current.Add(time.Second)
		got := tm.Remaining()
		if got > prev {
			t.Fatalf("remaining increased from %d to %d at tick %d", prev, got, i)
		}
		if got < 0 {
			t.Fatalf("remaining went negative: %d", got)
		}
		prev = got
	}
	if prev != 0 {
		t.Errorf("remaining after limit = %d, want 0", prev)
	}
}

func TestTimerExpiresExactlyOnceAcrossTicks(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	current := start

	fired := 0
	tm := NewTimer(start, intPtr(1), func() { fired++ }, WithClock(func() time.Time { return current }))
	tm.Start()
	tm.Stop() // drive ticks manually

	current = current.Add(2 * time.Minute)

	// Racing decrement events after expiry must not refire the callback.
	tm.tick()
	tm.tick()
	tm.expire()

	if fired != 1 {
		t.Fatalf("expiry callback fired %d times, want 1", fired)
	}
	if tm.State() != TimerExpired {
		t.Errorf("State() = %v, want TimerExpired", tm.State())
	}
}

func TestTimerIsLowTime(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{name: "plenty left", elapsed: 10 * time.Minute, want: false},
		{name: "exactly at threshold", elapsed: 55 * time.Minute, want: false},
		{name: "under threshold", elapsed: 55*time.Minute + time.Second, want: true},
		{name: "expired", elapsed: 2 * time.Hour, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := start.Add(tt.elapsed)
			tm := NewTimer(start, intPtr(60), nil, WithClock(func() time.Time { return current }))
			if got := tm.IsLowTime(); got != tt.want {
				t.Errorf("IsLowTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{5, "00:05"},
		{59, "00:59"},
		{60, "01:00"},
		{65, "01:05"},
		{600, "10:00"},
		{3600, "60:00"}, // minutes do not roll over into hours
		{3725, "62:05"},
		{-3, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatRemaining(tt.seconds); got != tt.want {
			t.Errorf("FormatRemaining(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestTimerRunsOnRealTicker(t *testing.T) {
	start := time.Now().Add(-59 * time.Second)

	fired := make(chan struct{}, 1)
	tm := NewTimer(start, intPtr(1), func() { fired <- struct{}{} },
		WithTickInterval(5*time.Millisecond))
	tm.Start()
	defer tm.Stop()

	if tm.State() != TimerRunning {
		t.Fatalf("State() = %v, want TimerRunning", tm.State())
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("timer never expired")
	}
}
