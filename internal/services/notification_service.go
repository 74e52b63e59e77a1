package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"tably/internal/hub"
	"tably/internal/models/db_models"
	"tably/internal/models/response_models"
	"tably/internal/repositories"
	mem "tably/pkg/memcache"
	"tably/pkg/utils"
)

const lookupTTL = 10 * time.Minute

type NotificationServiceInterface interface {
	// NotifyAccount persists a notification and pushes it to every live
	// connection of the account. Push delivery is best-effort.
	NotifyAccount(ctx context.Context, accountID string, title, body string, data map[string]any) error
	// NotifyRestaurantOwner resolves the owner of a restaurant and notifies
	// them, prefixing the restaurant's display name.
	NotifyRestaurantOwner(ctx context.Context, restaurantID string, title, body string, data map[string]any) error
	GetPreference(ctx context.Context, accountID string) (response_models.NotificationPreferenceResponse, error)
	SetPreference(ctx context.Context, accountID string, inAppEnabled bool) error
	ListRecent(ctx context.Context, accountID string, limit int) ([]db_models.Notification, error)
	MarkRead(ctx context.Context, accountID string, notificationID string) error
	// ClearCaches drops the name-lookup caches. Call on principal change.
	ClearCaches()
}

type NotificationService struct {
	notificationRepo repositories.NotificationRepository
	restaurantRepo   repositories.RestaurantRepository
	accountRepo      repositories.AccountRepository
	pushHub          *hub.Hub
	names            mem.LookupStore
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	restaurantRepo repositories.RestaurantRepository,
	accountRepo repositories.AccountRepository,
	pushHub *hub.Hub,
	names mem.LookupStore,
) NotificationServiceInterface {
	return &NotificationService{
		notificationRepo: notificationRepo,
		restaurantRepo:   restaurantRepo,
		accountRepo:      accountRepo,
		pushHub:          pushHub,
		names:            names,
	}
}

func (n *NotificationService) NotifyAccount(ctx context.Context, accountID string, title, body string, data map[string]any) error {

	accountUUID, err := uuid.Parse(accountID)
	if err != nil {
		return utils.ErrAccountNotFound
	}

	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("{}")
	}

	notification := &db_models.Notification{
		AccountID: accountUUID,
		Title:     title,
		Body:      body,
		Data:      payload,
		Status:    db_models.NotificationUnread,
	}

	if err := n.notificationRepo.Insert(ctx, notification); err != nil {
		return utils.ErrDatabaseError
	}

	n.pushHub.Publish(accountID, hub.PushMessage{
		ID:        notification.ID.String(),
		Title:     title,
		Body:      body,
		Data:      payload,
		Status:    string(notification.Status),
		CreatedAt: notification.CreatedAt,
	})

	return nil
}

func (n *NotificationService) NotifyRestaurantOwner(ctx context.Context, restaurantID string, title, body string, data map[string]any) error {

	name, err := n.names.GetOrFetch("restaurant:"+restaurantID, lookupTTL, func() (string, error) {
		restaurant, err := n.restaurantRepo.FindById(ctx, restaurantID)
		if err != nil {
			return "", utils.ErrDatabaseError
		}
		if restaurant == nil {
			return "", utils.ErrRestaurantNotFound
		}
		return restaurant.Name + "|" + restaurant.OwnerAccountID.String(), nil
	})
	if err != nil {
		return err
	}

	// name carries "displayName|ownerAccountID"
	displayName, ownerID := splitLookup(name)
	if displayName != "" {
		title = displayName + ": " + title
	}

	return n.NotifyAccount(ctx, ownerID, title, body, data)
}

func splitLookup(v string) (string, string) {
	for i := 0; i < len(v); i++ {
		if v[i] == '|' {
			return v[:i], v[i+1:]
		}
	}
	return "", v
}

func (n *NotificationService) GetPreference(ctx context.Context, accountID string) (response_models.NotificationPreferenceResponse, error) {

	pref, err := n.notificationRepo.FindPreference(ctx, accountID)
	if err != nil {
		return response_models.NotificationPreferenceResponse{}, utils.ErrDatabaseError
	}

	// Absence of a row means alerts were never turned off.
	if pref == nil {
		return response_models.NotificationPreferenceResponse{InAppEnabled: true}, nil
	}

	return response_models.NotificationPreferenceResponse{InAppEnabled: pref.InAppEnabled}, nil
}

func (n *NotificationService) SetPreference(ctx context.Context, accountID string, inAppEnabled bool) error {

	accountUUID, err := uuid.Parse(accountID)
	if err != nil {
		return utils.ErrAccountNotFound
	}

	pref, err := n.notificationRepo.FindPreference(ctx, accountID)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if pref == nil {
		pref = &db_models.NotificationPreference{AccountID: accountUUID}
	}
	pref.InAppEnabled = inAppEnabled

	if err := n.notificationRepo.SavePreference(ctx, pref); err != nil {
		return utils.ErrDatabaseError
	}
	return nil
}

func (n *NotificationService) ListRecent(ctx context.Context, accountID string, limit int) ([]db_models.Notification, error) {

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	notifications, err := n.notificationRepo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return notifications, nil
}

func (n *NotificationService) MarkRead(ctx context.Context, accountID string, notificationID string) error {
	if err := n.notificationRepo.MarkRead(ctx, accountID, notificationID); err != nil {
		return utils.ErrDatabaseError
	}
	return nil
}

func (n *NotificationService) ClearCaches() {
	n.names.Clear()
}
