package substatus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRemaining(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		target *time.Time
		status string
		want   string
	}{
		{
			name:   "nil target",
			target: nil,
			status: StatusActive,
			want:   "",
		},
		{
			name:   "suspended hides countdown",
			target: timePtr(now.Add(time.Hour)),
			status: StatusSuspended,
			want:   "",
		},
		{
			name:   "under a day",
			target: timePtr(now.Add(3*time.Hour + 25*time.Minute + 9*time.Second)),
			status: StatusActive,
			want:   "03:25:09",
		},
		{
			name:   "a day or more",
			target: timePtr(now.Add(2*24*time.Hour + 5*time.Hour + 3*time.Minute)),
			status: StatusActive,
			want:   "2d 05:03:00",
		},
		{
			name:   "past target on terminal status",
			target: timePtr(now.Add(-time.Minute)),
			status: StatusExpired,
			want:   "Expired",
		},
		{
			name:   "past target on canceled",
			target: timePtr(now.Add(-time.Minute)),
			status: StatusCanceled,
			want:   "Expired",
		},
		{
			name:   "past target on non-terminal status is stale, not expired",
			target: timePtr(now.Add(-time.Minute)),
			status: StatusActive,
			want:   "",
		},
		{
			name:   "exactly zero on grace",
			target: timePtr(now),
			status: StatusGrace,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRemaining(tt.target, tt.status, now))
		})
	}
}

func TestTickerEmitsAndStops(t *testing.T) {
	target := time.Now().Add(time.Hour)

	var mu sync.Mutex
	var got []string
	ticker := NewTicker(
		func() (*time.Time, string) { return &target, StatusActive },
		func(s string) {
			mu.Lock()
			got = append(got, s)
			mu.Unlock()
		},
	)
	ticker.interval = 10 * time.Millisecond

	ticker.Start()
	time.Sleep(50 * time.Millisecond)
	ticker.Stop()
	ticker.Stop() // idempotent

	mu.Lock()
	count := len(got)
	first := ""
	if count > 0 {
		first = got[0]
	}
	mu.Unlock()

	assert.GreaterOrEqual(t, count, 2, "expected the immediate emit plus ticks")
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, first)
}

func TestTickerSourceSwap(t *testing.T) {
	// The source is consulted on every tick, so swapping the target under a
	// running ticker changes the output without a restart.
	var mu sync.Mutex
	target := timePtr(time.Now().Add(time.Hour))
	status := StatusActive

	var last string
	ticker := NewTicker(
		func() (*time.Time, string) {
			mu.Lock()
			defer mu.Unlock()
			return target, status
		},
		func(s string) {
			mu.Lock()
			last = s
			mu.Unlock()
		},
	)
	ticker.interval = 10 * time.Millisecond
	ticker.Start()
	defer ticker.Stop()

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	target = nil
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "", last)
}
