package substatus

import (
	"fmt"
	"sync"
	"time"
)

// terminal statuses render "Expired" at zero; anything else at zero is a
// stale target mid-transition and renders as absent instead.
func isTerminal(status string) bool {
	return status == StatusExpired || status == StatusCanceled
}

// FormatRemaining renders the countdown toward target. Returns "" when the
// countdown should not be shown at all.
func FormatRemaining(target *time.Time, status string, now time.Time) string {

	if target == nil || status == StatusSuspended {
		return ""
	}

	remaining := target.Sub(now)
	if remaining <= 0 {
		if isTerminal(status) {
			return "Expired"
		}
		return ""
	}

	days := int(remaining / (24 * time.Hour))
	remaining -= time.Duration(days) * 24 * time.Hour
	hours := int(remaining / time.Hour)
	minutes := int(remaining/time.Minute) % 60
	seconds := int(remaining/time.Second) % 60

	if days >= 1 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// Ticker drives a once-per-second countdown display. Each tick recomputes
// the remaining time from the wall clock, so a delayed tick cannot
// accumulate drift. The source callback supplies the current target and
// status, letting a refetch swap them under a running ticker.
type Ticker struct {
	source   func() (*time.Time, string)
	onTick   func(string)
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

func NewTicker(source func() (*time.Time, string), onTick func(string)) *Ticker {
	return &Ticker{
		source:   source,
		onTick:   onTick,
		interval: time.Second,
		stop:     make(chan struct{}),
	}
}

// Start runs the ticker until Stop. It emits immediately, then every second.
func (t *Ticker) Start() {
	go func() {
		t.emit()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.emit()
			case <-t.stop:
				return
			}
		}
	}()
}

func (t *Ticker) emit() {
	target, status := t.source()
	t.onTick(FormatRemaining(target, status, time.Now()))
}

// Stop is idempotent.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
}
