package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tably/internal/models/db_models"
	"tably/internal/models/response_models"
	"tably/internal/repositories"
	"tably/pkg/utils"
)

const daySeconds = 24 * 60 * 60

// LifecycleServiceInterface is the admin action surface. Every mutation
// appends its event, pushes a notice to the restaurant owner and returns the
// refreshed snapshot. None of the actions carry an idempotency key: an
// ambiguous failure must be surfaced, never blindly retried.
type LifecycleServiceInterface interface {
	GrantPaidDays(ctx context.Context, restaurantID string, days int) (response_models.SubscriptionSnapshot, error)
	SetTrialDays(ctx context.Context, restaurantID string, days int) (response_models.SubscriptionSnapshot, error)
	SetPaidDays(ctx context.Context, restaurantID string, days int) (response_models.SubscriptionSnapshot, error)
	Suspend(ctx context.Context, restaurantID string, reason string) (response_models.SubscriptionSnapshot, error)
	Unsuspend(ctx context.Context, restaurantID string) (response_models.SubscriptionSnapshot, error)
	StartTrial(ctx context.Context, restaurantID string) (response_models.SubscriptionSnapshot, error)
	// RunDailyCheck sweeps trial/paid/grace expirations. Returns the number
	// of subscriptions transitioned.
	RunDailyCheck(ctx context.Context) (int, error)
}

type LifecycleService struct {
	subRepo        repositories.SubscriptionRepository
	eventRepo      repositories.EventRepository
	restaurantRepo repositories.RestaurantRepository
	notifications  NotificationServiceInterface
}

func NewLifecycleService(
	subRepo repositories.SubscriptionRepository,
	eventRepo repositories.EventRepository,
	restaurantRepo repositories.RestaurantRepository,
	notifications NotificationServiceInterface,
) LifecycleServiceInterface {
	return &LifecycleService{
		subRepo:        subRepo,
		eventRepo:      eventRepo,
		restaurantRepo: restaurantRepo,
		notifications:  notifications,
	}
}

func (l *LifecycleService) loadSubscription(ctx context.Context, restaurantID string) (*db_models.Subscription, error) {

	restaurant, err := l.restaurantRepo.FindById(ctx, restaurantID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if restaurant == nil {
		return nil, utils.ErrRestaurantNotFound
	}

	sub, err := l.subRepo.FindByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if sub == nil {
		return nil, utils.ErrSubscriptionNotFound
	}

	return sub, nil
}

func (l *LifecycleService) appendEvent(ctx context.Context, sub *db_models.Subscription, eventType string, metadata map[string]any) {

	payload, err := json.Marshal(metadata)
	if err != nil {
		payload = []byte("{}")
	}

	event := &db_models.SubscriptionEvent{
		RestaurantID:   sub.RestaurantID,
		SubscriptionID: sub.ID,
		EventType:      eventType,
		Metadata:       payload,
	}

	if err := l.eventRepo.Append(ctx, event); err != nil {
		// The subscription row is already updated; a missing event row is
		// diagnosable from logs and the next sweep re-derives status.
		log.Printf("lifecycle: append %s event for restaurant %s: %v", eventType, sub.RestaurantID, err)
	}
}

func (l *LifecycleService) notifyOwner(ctx context.Context, sub *db_models.Subscription, title, body string) {
	if l.notifications == nil {
		return
	}
	if err := l.notifications.NotifyRestaurantOwner(ctx, sub.RestaurantID.String(), title, body, map[string]any{
		"restaurant_id": sub.RestaurantID.String(),
		"status":        string(sub.Status),
	}); err != nil {
		log.Printf("lifecycle: notify owner of restaurant %s: %v", sub.RestaurantID, err)
	}
}

func validateDays(days int) error {
	if days <= 0 {
		return utils.ErrInvalidDays
	}
	return nil
}

func (l *LifecycleService) GrantPaidDays(ctx context.Context, restaurantID string, days int) (response_models.SubscriptionSnapshot, error) {

	if err := validateDays(days); err != nil {
		return response_models.SubscriptionSnapshot{}, err
	}

	sub, err := l.loadSubscription(ctx, restaurantID)
	if err != nil {
		return response_models.SubscriptionSnapshot{}, err
	}

	now := time.Now()
	base := now.Unix()
	if sub.CurrentPeriodEndAt != nil && *sub.CurrentPeriodEndAt > base {
		base = *sub.CurrentPeriodEndAt
	}
	end := base + int64(days)*daySeconds
	sub.CurrentPeriodEndAt = &end
	sub.GraceEndAt = nil

	// Granting days to a suspended account banks the time; access stays
	// revoked until an explicit unsuspend.
	if sub.Status == db_models.SubStatusSuspended {
		sub.StatusBeforeSuspend = db_models.SubStatusActive
	} else {
		sub.Status = db_models.SubStatusActive
	}

	if err := l.subRepo.Update(ctx, sub); err != nil {
		return response_models.SubscriptionSnapshot{}, utils.ErrDatabaseError
	}

	l.appendEvent(ctx, sub, db_models.EventDaysGranted, map[string]any{"days": days})
	l.notifyOwner(ctx, sub, "Subscription extended",
		fmt.Sprintf("%d paid day(s) were added to your subscription.", days))

	return BuildSnapshot(sub, now), nil
}

func (l *LifecycleService) SetTrialDays(ctx context.Context, restaurantID string, days int) (response_models.SubscriptionSnapshot, error) {

	if err := validateDays(days); err != nil {
		return response_models.SubscriptionSnapshot{}, err
	}

	sub, err := l.loadSubscription(ctx, restaurantID)
	if err != nil {
		return response_models.SubscriptionSnapshot{}, err
	}

	if sub.TrialEndAt != nil ||
		sub.Status == db_models.SubStatusTrialing ||
		sub.Status == db_models.SubStatusActive {
		return response_models.SubscriptionSnapshot{}, utils.ErrTrialAlreadyUsed
	}

	now := time.Now()
	start := now.Unix()
	end := start + int64(days)*daySeconds
	sub.TrialStartAt = &start
	sub.TrialEndAt = &end
	sub.Status = db_models.SubStatusTrialing

	if err := l.subRepo.Update(ctx, sub); err != nil {
		return response_models.SubscriptionSnapshot{}, utils.ErrDatabaseError
	}

	l.appendEvent(ctx, sub, db_models.EventTrialSet, map[string]any{"days": days})
	l.notifyOwner(ctx, sub, "Trial updated",
		fmt.Sprintf("Your trial now runs for %d day(s).", days))

	return BuildSnapshot(sub, now), nil
}

func (l *LifecycleService) SetPaidDays(ctx context.Context, restaurantID string, days int) (response_models.SubscriptionSnapshot, error) {

	if err := validateDays(days); err != nil {
		return response_models.SubscriptionSnapshot{}, err
	}

	sub, err := l.loadSubscription(ctx, restaurantID)
	if err != nil {
		return response_models.SubscriptionSnapshot{}, err
	}

	now := time.Now()
	end := now.Unix() + int64(days)*daySeconds
	sub.CurrentPeriodEndAt = &end
	sub.GraceEndAt = nil

	if sub.Status == db_models.SubStatusSuspended {
		sub.StatusBeforeSuspend = db_models.SubStatusActive
	} else {
		sub.Status = db_models.SubStatusActive
	}

	if err := l.subRepo.Update(ctx, sub); err != nil {
		return response_models.SubscriptionSnapshot{}, utils.ErrDatabaseError
	}

	l.appendEvent(ctx, sub, db_models.EventPaidSet, map[string]any{"days": days})
	l.notifyOwner(ctx, sub, "Paid period set",
		fmt.Sprintf("Your paid period was set to %d day(s) from today.", days))

	return BuildSnapshot(sub, now), nil
}

func (l *LifecycleService) Suspend(ctx context.Context, restaurantID string, reason string) (response_models.SubscriptionSnapshot, error) {

	sub, err := l.loadSubscription(ctx, restaurantID)
	if err != nil {
		return response_models.SubscriptionSnapshot{}, err
	}

	now := time.Now()
	if sub.Status != db_models.SubStatusSuspended {
		sub.StatusBeforeSuspend = sub.Status
		sub.Status = db_models.SubStatusSuspended
		if err := l.subRepo.Update(ctx, sub); err != nil {
			return response_models.SubscriptionSnapshot{}, utils.ErrDatabaseError
		}
	}

	metadata := map[string]any{}
	if reason != "" {
		metadata["reason"] = reason
	}
	l.appendEvent(ctx, sub, db_models.EventSuspended, metadata)

	body := "Your subscription was suspended."
	if reason != "" {
		body = fmt.Sprintf("Your subscription was suspended: %s", reason)
	}
	l.notifyOwner(ctx, sub, "Subscription suspended", body)

	return BuildSnapshot(sub, now), nil
}

func (l *LifecycleService) Unsuspend(ctx context.Context, restaurantID string) (response_models.SubscriptionSnapshot, error) {

	sub, err := l.loadSubscription(ctx, restaurantID)
	if err != nil {
		return response_models.SubscriptionSnapshot{}, err
	}

	now := time.Now()
	if sub.Status == db_models.SubStatusSuspended {
		// Prefer the status recorded at suspension time when its backing
		// window is still open. A restaurant suspended mid-trial with paid
		// days banked on top should come back trialing, not active.
		if windowHolds(sub, sub.StatusBeforeSuspend, now) {
			sub.Status = sub.StatusBeforeSuspend
		} else {
			sub.Status = deriveStatusFromWindows(sub, now)
		}
		sub.StatusBeforeSuspend = ""
		if err := l.subRepo.Update(ctx, sub); err != nil {
			return response_models.SubscriptionSnapshot{}, utils.ErrDatabaseError
		}
	}

	l.appendEvent(ctx, sub, db_models.EventUnsuspended, map[string]any{})
	l.notifyOwner(ctx, sub, "Subscription restored", "Your subscription was restored.")

	return BuildSnapshot(sub, now), nil
}

func (l *LifecycleService) StartTrial(ctx context.Context, restaurantID string) (response_models.SubscriptionSnapshot, error) {

	sub, err := l.loadSubscription(ctx, restaurantID)
	if err != nil {
		return response_models.SubscriptionSnapshot{}, err
	}

	if sub.TrialStartAt != nil ||
		sub.Status == db_models.SubStatusTrialing ||
		sub.Status == db_models.SubStatusActive {
		return response_models.SubscriptionSnapshot{}, utils.ErrTrialAlreadyUsed
	}

	trialDays := int(sub.Plan.TrialDays)
	if trialDays <= 0 {
		trialDays = 14
	}

	now := time.Now()
	start := now.Unix()
	end := start + int64(trialDays)*daySeconds
	sub.TrialStartAt = &start
	sub.TrialEndAt = &end
	sub.Status = db_models.SubStatusTrialing

	if err := l.subRepo.Update(ctx, sub); err != nil {
		return response_models.SubscriptionSnapshot{}, utils.ErrDatabaseError
	}

	l.appendEvent(ctx, sub, db_models.EventTrialStarted, map[string]any{"days": trialDays})
	l.notifyOwner(ctx, sub, "Trial started",
		fmt.Sprintf("Your %d-day trial has started.", trialDays))

	return BuildSnapshot(sub, now), nil
}

func (l *LifecycleService) RunDailyCheck(ctx context.Context) (int, error) {

	now := time.Now()
	due, err := l.subRepo.FindDueForSweep(ctx, now.Unix())
	if err != nil {
		return 0, utils.ErrDatabaseError
	}

	transitioned := 0
	for i := range due {
		sub := &due[i]
		if l.sweepOne(ctx, sub, now) {
			transitioned++
		}
	}

	log.Printf("lifecycle: daily check swept %d of %d due subscriptions", transitioned, len(due))
	return transitioned, nil
}

func (l *LifecycleService) sweepOne(ctx context.Context, sub *db_models.Subscription, now time.Time) bool {

	switch sub.Status {
	case db_models.SubStatusTrialing, db_models.SubStatusActive:
		if sub.CancelAtPeriodEnd {
			sub.Status = db_models.SubStatusCanceled
			if err := l.subRepo.Update(ctx, sub); err != nil {
				log.Printf("lifecycle: sweep restaurant %s: %v", sub.RestaurantID, err)
				return false
			}
			l.appendEvent(ctx, sub, db_models.EventExpired, map[string]any{"reason": "cancel_at_period_end"})
			l.notifyOwner(ctx, sub, "Subscription canceled", "Your subscription ended and was not renewed.")
			return true
		}

		graceDays := int64(sub.Plan.GraceDays)
		if graceDays <= 0 {
			graceDays = 3
		}
		graceEnd := now.Unix() + graceDays*daySeconds
		sub.Status = db_models.SubStatusGrace
		sub.GraceEndAt = &graceEnd
		if err := l.subRepo.Update(ctx, sub); err != nil {
			log.Printf("lifecycle: sweep restaurant %s: %v", sub.RestaurantID, err)
			return false
		}
		l.appendEvent(ctx, sub, db_models.EventGraceEntered, map[string]any{"grace_days": graceDays})
		l.notifyOwner(ctx, sub, "Payment due",
			fmt.Sprintf("Your subscription expired; you have %d day(s) of grace access left.", graceDays))
		return true

	case db_models.SubStatusGrace:
		sub.Status = db_models.SubStatusExpired
		if err := l.subRepo.Update(ctx, sub); err != nil {
			log.Printf("lifecycle: sweep restaurant %s: %v", sub.RestaurantID, err)
			return false
		}
		l.appendEvent(ctx, sub, db_models.EventExpired, map[string]any{})
		l.notifyOwner(ctx, sub, "Subscription expired", "Your grace period ended and the subscription expired.")
		return true
	}

	return false
}

// windowHolds reports whether the time window backing the given status is
// still open, so an unsuspend can restore the pre-suspension status verbatim.
func windowHolds(sub *db_models.Subscription, status db_models.SubscriptionStatus, now time.Time) bool {

	nowUnix := now.Unix()
	switch status {
	case db_models.SubStatusActive:
		return sub.CurrentPeriodEndAt != nil && *sub.CurrentPeriodEndAt > nowUnix
	case db_models.SubStatusGrace:
		return sub.GraceEndAt != nil && *sub.GraceEndAt > nowUnix
	case db_models.SubStatusTrialing:
		return sub.TrialEndAt != nil && *sub.TrialEndAt > nowUnix
	default:
		return false
	}
}

// deriveStatusFromWindows recomputes the status a subscription should hold
// from its time windows alone. Unsuspend falls back to it when the recorded
// pre-suspension status has lapsed; the sweep handles forward transitions.
func deriveStatusFromWindows(sub *db_models.Subscription, now time.Time) db_models.SubscriptionStatus {

	nowUnix := now.Unix()
	switch {
	case sub.CurrentPeriodEndAt != nil && *sub.CurrentPeriodEndAt > nowUnix:
		return db_models.SubStatusActive
	case sub.GraceEndAt != nil && *sub.GraceEndAt > nowUnix:
		return db_models.SubStatusGrace
	case sub.TrialEndAt != nil && *sub.TrialEndAt > nowUnix:
		return db_models.SubStatusTrialing
	default:
		return db_models.SubStatusExpired
	}
}
