package repositories

import (
	"context"

	"gorm.io/gorm"
	"tably/internal/models/db_models"
)

type EventRepository interface {
	Append(ctx context.Context, event *db_models.SubscriptionEvent) error
	// ListByRestaurant returns the whole history, newest first.
	ListByRestaurant(ctx context.Context, restaurantID string) ([]db_models.SubscriptionEvent, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (e *eventRepository) Append(ctx context.Context, event *db_models.SubscriptionEvent) error {
	return e.db.WithContext(ctx).Create(event).Error
}

func (e *eventRepository) ListByRestaurant(ctx context.Context, restaurantID string) ([]db_models.SubscriptionEvent, error) {

	var events []db_models.SubscriptionEvent
	err := e.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC").
		Find(&events).Error

	if err != nil {
		return nil, err
	}

	return events, nil
}
