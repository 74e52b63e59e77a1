package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"tably/internal/models/db_models"
)

type RestaurantRepository interface {
	Insert(ctx context.Context, restaurant *db_models.Restaurant) error
	FindById(ctx context.Context, id string) (*db_models.Restaurant, error)
	FindBySlug(ctx context.Context, slug string) (*db_models.Restaurant, error)
}

type restaurantRepository struct {
	db *gorm.DB
}

func NewRestaurantRepository(db *gorm.DB) RestaurantRepository {
	return &restaurantRepository{db: db}
}

func (r *restaurantRepository) Insert(ctx context.Context, restaurant *db_models.Restaurant) error {
	return r.db.WithContext(ctx).Create(restaurant).Error
}

func (r *restaurantRepository) FindById(ctx context.Context, id string) (*db_models.Restaurant, error) {
	var restaurant db_models.Restaurant
	err := r.db.WithContext(ctx).First(&restaurant, "id = ?", id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &restaurant, nil
}

func (r *restaurantRepository) FindBySlug(ctx context.Context, slug string) (*db_models.Restaurant, error) {
	var restaurant db_models.Restaurant
	err := r.db.WithContext(ctx).First(&restaurant, "slug = ?", slug).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &restaurant, nil
}
