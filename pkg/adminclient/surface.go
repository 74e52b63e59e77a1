package adminclient

import (
	"context"
	"sync"
	"time"

	"tably/pkg/substatus"
)

// Surface holds the last-fetched subscription state for one restaurant and
// runs lifecycle actions against it. Suspend and Unsuspend set a short-lived
// pending intent so the derived status can flip immediately; the intent is
// cleared by the refetch that follows every action, so a server rejection
// rolls the optimistic state back instead of leaving it stuck.
type Surface struct {
	client       *Client
	restaurantID string

	mu       sync.RWMutex
	snapshot substatus.Snapshot
	events   []substatus.Event
	intent   substatus.Intent
	fetched  bool
}

func NewSurface(client *Client, restaurantID string) *Surface {
	return &Surface{client: client, restaurantID: restaurantID}
}

// Refresh fetches the current snapshot and event history, replacing the
// cached copies and clearing any pending intent.
func (s *Surface) Refresh(ctx context.Context) error {
	snapshot, err := s.client.FetchStatus(ctx, s.restaurantID)
	if err != nil {
		return err
	}
	events, err := s.client.FetchEvents(ctx, s.restaurantID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.events = events
	s.intent = substatus.IntentNone
	s.fetched = true
	s.mu.Unlock()
	return nil
}

func (s *Surface) Snapshot() (substatus.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.fetched
}

func (s *Surface) Events() []substatus.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]substatus.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Derived computes the display status and countdown target from the cached
// state, honoring any pending intent.
func (s *Surface) Derived(now time.Time) substatus.Derived {
	s.mu.RLock()
	snapshot, events, intent := s.snapshot, s.events, s.intent
	s.mu.RUnlock()
	return substatus.Derive(snapshot, events, intent, now)
}

func (s *Surface) GrantDays(ctx context.Context, days int) error {
	if days <= 0 {
		return ErrInvalidDays
	}
	_, err := s.client.GrantDays(ctx, s.restaurantID, days)
	return s.finish(ctx, err)
}

func (s *Surface) SetTrialDays(ctx context.Context, days int) error {
	if days <= 0 {
		return ErrInvalidDays
	}
	_, err := s.client.SetTrialDays(ctx, s.restaurantID, days)
	return s.finish(ctx, err)
}

func (s *Surface) SetPaidDays(ctx context.Context, days int) error {
	if days <= 0 {
		return ErrInvalidDays
	}
	_, err := s.client.SetPaidDays(ctx, s.restaurantID, days)
	return s.finish(ctx, err)
}

func (s *Surface) Suspend(ctx context.Context, reason string) error {
	s.setIntent(substatus.IntentSuspend)
	_, err := s.client.Suspend(ctx, s.restaurantID, reason)
	return s.finish(ctx, err)
}

func (s *Surface) Unsuspend(ctx context.Context) error {
	s.setIntent(substatus.IntentUnsuspend)
	_, err := s.client.Unsuspend(ctx, s.restaurantID)
	return s.finish(ctx, err)
}

func (s *Surface) StartTrial(ctx context.Context) error {
	_, err := s.client.StartTrial(ctx, s.restaurantID)
	return s.finish(ctx, err)
}

func (s *Surface) setIntent(intent substatus.Intent) {
	s.mu.Lock()
	s.intent = intent
	s.mu.Unlock()
}

// finish refetches after every action attempt, succeeded or not, so the
// cache always converges on the server's view. The action error wins over
// a refetch error.
func (s *Surface) finish(ctx context.Context, actionErr error) error {
	if refreshErr := s.Refresh(ctx); refreshErr != nil {
		s.setIntent(substatus.IntentNone)
		if actionErr == nil {
			return refreshErr
		}
	}
	return actionErr
}
