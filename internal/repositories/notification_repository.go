package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"tably/internal/models/db_models"
)

type NotificationRepository interface {
	Insert(ctx context.Context, notification *db_models.Notification) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]db_models.Notification, error)
	MarkRead(ctx context.Context, accountID string, notificationID string) error
	FindPreference(ctx context.Context, accountID string) (*db_models.NotificationPreference, error)
	SavePreference(ctx context.Context, pref *db_models.NotificationPreference) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (n *notificationRepository) Insert(ctx context.Context, notification *db_models.Notification) error {
	return n.db.WithContext(ctx).Create(notification).Error
}

func (n *notificationRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]db_models.Notification, error) {

	var notifications []db_models.Notification
	err := n.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error

	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (n *notificationRepository) MarkRead(ctx context.Context, accountID string, notificationID string) error {
	return n.db.WithContext(ctx).
		Model(&db_models.Notification{}).
		Where("id = ? AND account_id = ?", notificationID, accountID).
		Update("status", db_models.NotificationRead).Error
}

func (n *notificationRepository) FindPreference(ctx context.Context, accountID string) (*db_models.NotificationPreference, error) {

	var pref db_models.NotificationPreference
	err := n.db.WithContext(ctx).First(&pref, "account_id = ?", accountID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &pref, nil
}

func (n *notificationRepository) SavePreference(ctx context.Context, pref *db_models.NotificationPreference) error {
	return n.db.WithContext(ctx).Save(pref).Error
}
