// Package substatus derives the single status label and countdown deadline a
// subscription view should show, reconciling the server snapshot, the event
// log and a short-lived optimistic intent. Everything here is pure: callers
// pass `now` in, nothing reads the wall clock.
package substatus

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Display statuses, in no particular order; precedence lives in DeriveStatus.
const (
	StatusSuspended = "SUSPENDED"
	StatusActive    = "ACTIVE"
	StatusTrialing  = "TRIALING"
	StatusGrace     = "GRACE"
	StatusExpired   = "EXPIRED"
	StatusCanceled  = "CANCELED"
	StatusNA        = "N/A"
)

// Snapshot is the client-side copy of the server's subscription view. Field
// names match the REST payload; timestamps tolerate legacy formats.
type Snapshot struct {
	Status             string   `json:"status"`
	TrialStartAt       FlexTime `json:"trial_start_at"`
	TrialEndAt         FlexTime `json:"trial_end_at"`
	CurrentPeriodEndAt FlexTime `json:"current_period_end_at"`
	GraceEndAt         FlexTime `json:"grace_end_at"`
	TrialDaysRemaining int      `json:"trial_days_remaining"`
	PaidDaysRemaining  int      `json:"paid_days_remaining"`
	GraceDaysRemaining int      `json:"grace_days_remaining"`
	CancelAtPeriodEnd  bool     `json:"cancel_at_period_end"`
}

// Event is one row of the append-only subscription event log.
type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt FlexTime        `json:"created_at"`
}

// Intent is the optimistic override an admin surface applies between firing
// a suspend/unsuspend call and the next authoritative refetch.
type Intent int

const (
	IntentNone Intent = iota
	IntentSuspend
	IntentUnsuspend
)

// Derived is the reconciler's whole output.
type Derived struct {
	Status string
	// Countdown is the one deadline to count down to, nil when none applies.
	Countdown *time.Time
}

func Derive(snap Snapshot, events []Event, intent Intent, now time.Time) Derived {
	return Derived{
		Status:    DeriveStatus(snap, events, intent, now),
		Countdown: CountdownTarget(snap, events, intent, now),
	}
}

type eventKind int

const (
	kindOther eventKind = iota
	kindSuspend
	kindUnsuspend
	kindReactivate
)

// classify maps an event type onto the suspension-relevant kinds. Known
// types match exactly; anything else is a legacy row and falls back to loose
// substring matching, checking UNSUSPEND before SUSPEND so the one does not
// shadow the other.
func classify(eventType string) eventKind {
	switch strings.ToUpper(strings.TrimSpace(eventType)) {
	case "SUSPENDED":
		return kindSuspend
	case "UNSUSPENDED":
		return kindUnsuspend
	case "REACTIVATED":
		return kindReactivate
	}

	upper := strings.ToUpper(eventType)
	switch {
	case strings.Contains(upper, "UNSUSPEND"):
		return kindUnsuspend
	case strings.Contains(upper, "ACTIVAT"):
		return kindReactivate
	case strings.Contains(upper, "SUSPEND"):
		return kindSuspend
	default:
		return kindOther
	}
}

// SuspendedByEvents reports whether the newest suspension-relevant event is a
// suspend. Events may arrive in any order; they are examined newest first.
func SuspendedByEvents(events []Event) bool {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].CreatedAt.Time(), sorted[j].CreatedAt.Time()
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})

	for _, event := range sorted {
		switch classify(event.EventType) {
		case kindSuspend:
			return true
		case kindUnsuspend, kindReactivate:
			return false
		}
	}
	return false
}

func isSuspended(events []Event, intent Intent) bool {
	switch intent {
	case IntentSuspend:
		return true
	case IntentUnsuspend:
		return false
	default:
		return SuspendedByEvents(events)
	}
}

// trialingStatuses includes the historical "TRAILING" typo some rows carry.
var trialingStatuses = map[string]bool{
	"TRIALING": true,
	"TRAILING": true,
	"TRIAL":    true,
}

func isTrialing(snap Snapshot, now time.Time) bool {
	if snap.TrialEndAt.InFuture(now) {
		return true
	}
	if trialingStatuses[strings.ToUpper(strings.TrimSpace(snap.Status))] {
		return true
	}
	return snap.TrialDaysRemaining > 0
}

// DeriveStatus applies the display precedence: suspension beats everything,
// grace beats paid, paid beats trial, and only then does the raw server
// status get a say.
func DeriveStatus(snap Snapshot, events []Event, intent Intent, now time.Time) string {

	if isSuspended(events, intent) {
		return StatusSuspended
	}

	raw := strings.ToUpper(strings.TrimSpace(snap.Status))

	if raw == StatusGrace {
		return StatusGrace
	}
	if snap.GraceEndAt.InFuture(now) {
		return StatusGrace
	}
	if snap.PaidDaysRemaining > 0 {
		return StatusActive
	}
	if isTrialing(snap, now) {
		return StatusTrialing
	}
	if raw != "" {
		return raw
	}
	return StatusNA
}

// CountdownTarget picks the single deadline worth counting down to, or nil.
// Suspension always suppresses the countdown.
func CountdownTarget(snap Snapshot, events []Event, intent Intent, now time.Time) *time.Time {

	if isSuspended(events, intent) {
		return nil
	}

	if snap.GraceEndAt.InFuture(now) {
		return snap.GraceEndAt.Time()
	}

	if snap.PaidDaysRemaining > 0 {
		if snap.CurrentPeriodEndAt.InFuture(now) {
			return snap.CurrentPeriodEndAt.Time()
		}
		t := now.Add(time.Duration(snap.PaidDaysRemaining) * 24 * time.Hour)
		return &t
	}

	if snap.GraceDaysRemaining > 0 {
		if snap.GraceEndAt.InFuture(now) {
			return snap.GraceEndAt.Time()
		}
		t := now.Add(time.Duration(snap.GraceDaysRemaining) * 24 * time.Hour)
		return &t
	}

	if isTrialing(snap, now) && snap.TrialEndAt.InFuture(now) {
		return snap.TrialEndAt.Time()
	}

	return nil
}

// SuspendReason extracts the free-text reason from the newest suspend
// event's metadata, which may be a JSON object or a bare string. Empty when
// not suspended or no reason was recorded.
func SuspendReason(events []Event) string {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].CreatedAt.Time(), sorted[j].CreatedAt.Time()
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})

	for _, event := range sorted {
		switch classify(event.EventType) {
		case kindUnsuspend, kindReactivate:
			return ""
		case kindSuspend:
			var obj struct {
				Reason string `json:"reason"`
			}
			if err := json.Unmarshal(event.Metadata, &obj); err == nil && obj.Reason != "" {
				return obj.Reason
			}
			var plain string
			if err := json.Unmarshal(event.Metadata, &plain); err == nil {
				return plain
			}
			return ""
		}
	}
	return ""
}
