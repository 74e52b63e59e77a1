package services

import (
	"context"
	"time"

	"tably/internal/models/db_models"
	"tably/internal/models/response_models"
	"tably/internal/repositories"
	"tably/pkg/utils"
)

type SubscriptionServiceInterface interface {
	GetSnapshot(ctx context.Context, restaurantID string) (response_models.SubscriptionSnapshot, error)
	GetEvents(ctx context.Context, restaurantID string) ([]response_models.SubscriptionEventResponse, error)
}

type SubscriptionService struct {
	subRepo   repositories.SubscriptionRepository
	eventRepo repositories.EventRepository
}

func NewSubscriptionService(
	subRepo repositories.SubscriptionRepository,
	eventRepo repositories.EventRepository,
) SubscriptionServiceInterface {
	return &SubscriptionService{
		subRepo:   subRepo,
		eventRepo: eventRepo,
	}
}

func (s *SubscriptionService) GetSnapshot(ctx context.Context, restaurantID string) (response_models.SubscriptionSnapshot, error) {

	sub, err := s.subRepo.FindByRestaurant(ctx, restaurantID)
	if err != nil {
		return response_models.SubscriptionSnapshot{}, utils.ErrDatabaseError
	}
	if sub == nil {
		return response_models.SubscriptionSnapshot{}, utils.ErrSubscriptionNotFound
	}

	return BuildSnapshot(sub, time.Now()), nil
}

func (s *SubscriptionService) GetEvents(ctx context.Context, restaurantID string) ([]response_models.SubscriptionEventResponse, error) {

	events, err := s.eventRepo.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	result := make([]response_models.SubscriptionEventResponse, 0, len(events))
	for _, event := range events {
		result = append(result, response_models.SubscriptionEventResponse{
			ID:        event.ID.String(),
			EventType: event.EventType,
			Metadata:  []byte(event.Metadata),
			CreatedAt: event.CreatedAt,
		})
	}

	return result, nil
}

// BuildSnapshot assembles the client-facing view of a subscription row. Every
// mutating lifecycle action returns the result of this same function so the
// caller always reconciles against identical shapes.
func BuildSnapshot(sub *db_models.Subscription, now time.Time) response_models.SubscriptionSnapshot {

	snapshot := response_models.SubscriptionSnapshot{
		RestaurantID:       sub.RestaurantID.String(),
		PlanCode:           sub.Plan.Code,
		Status:             string(sub.Status),
		TrialStartAt:       utils.FormatRFC3339Ptr(sub.TrialStartAt),
		TrialEndAt:         utils.FormatRFC3339Ptr(sub.TrialEndAt),
		CurrentPeriodEndAt: utils.FormatRFC3339Ptr(sub.CurrentPeriodEndAt),
		GraceEndAt:         utils.FormatRFC3339Ptr(sub.GraceEndAt),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}

	if sub.TrialEndAt != nil {
		snapshot.TrialDaysRemaining = utils.DaysRemaining(*sub.TrialEndAt, now)
	}
	if sub.CurrentPeriodEndAt != nil {
		snapshot.PaidDaysRemaining = utils.DaysRemaining(*sub.CurrentPeriodEndAt, now)
	}
	if sub.GraceEndAt != nil {
		snapshot.GraceDaysRemaining = utils.DaysRemaining(*sub.GraceEndAt, now)
	}

	return snapshot
}
