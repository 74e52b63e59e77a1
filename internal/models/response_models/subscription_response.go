package response_models

import "encoding/json"

// SubscriptionSnapshot is the read-only view clients cache and feed to the
// status reconciler. Timestamps are RFC3339 strings or null.
type SubscriptionSnapshot struct {
	RestaurantID       string  `json:"restaurant_id"`
	PlanCode           string  `json:"plan_code"`
	Status             string  `json:"status"`
	TrialStartAt       *string `json:"trial_start_at"`
	TrialEndAt         *string `json:"trial_end_at"`
	CurrentPeriodEndAt *string `json:"current_period_end_at"`
	GraceEndAt         *string `json:"grace_end_at"`
	TrialDaysRemaining int     `json:"trial_days_remaining"`
	PaidDaysRemaining  int     `json:"paid_days_remaining"`
	GraceDaysRemaining int     `json:"grace_days_remaining"`
	CancelAtPeriodEnd  bool    `json:"cancel_at_period_end"`
}

type SubscriptionEventResponse struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt int64           `json:"created_at"`
}
