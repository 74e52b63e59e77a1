package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"tably/internal/models/db_models"
)

type SubscriptionRepository interface {
	Insert(ctx context.Context, sub *db_models.Subscription) error
	Update(ctx context.Context, sub *db_models.Subscription) error
	FindByRestaurant(ctx context.Context, restaurantID string) (*db_models.Subscription, error)
	// FindDueForSweep returns every non-suspended subscription whose trial,
	// paid period or grace window ended at or before now (unix seconds).
	FindDueForSweep(ctx context.Context, now int64) ([]db_models.Subscription, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (s *subscriptionRepository) Insert(ctx context.Context, sub *db_models.Subscription) error {
	return s.db.WithContext(ctx).Create(sub).Error
}

func (s *subscriptionRepository) Update(ctx context.Context, sub *db_models.Subscription) error {
	return s.db.WithContext(ctx).Save(sub).Error
}

func (s *subscriptionRepository) FindByRestaurant(ctx context.Context, restaurantID string) (*db_models.Subscription, error) {

	var sub db_models.Subscription
	err := s.db.WithContext(ctx).
		Preload("Plan").
		First(&sub, "restaurant_id = ?", restaurantID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &sub, nil
}

func (s *subscriptionRepository) FindDueForSweep(ctx context.Context, now int64) ([]db_models.Subscription, error) {

	var subs []db_models.Subscription
	err := s.db.WithContext(ctx).
		Preload("Plan").
		Where("status <> ?", db_models.SubStatusSuspended).
		Where(
			s.db.Where("status = ? AND trial_end_at IS NOT NULL AND trial_end_at <= ?", db_models.SubStatusTrialing, now).
				Or("status = ? AND current_period_end_at IS NOT NULL AND current_period_end_at <= ?", db_models.SubStatusActive, now).
				Or("status = ? AND grace_end_at IS NOT NULL AND grace_end_at <= ?", db_models.SubStatusGrace, now),
		).
		Find(&subs).Error

	if err != nil {
		return nil, err
	}

	return subs, nil
}
