package notification_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
	"tably/internal/hub"
	"tably/internal/repositories"
	"tably/internal/services"
	mem "tably/pkg/memcache"
)

var Module = fx.Provide(
	provideHub,
	provideLookupCache,
	provideNotificationRepo,
	provideNotificationService)

func provideHub() *hub.Hub {
	return hub.NewHub()
}

func provideLookupCache() mem.LookupStore {
	return mem.NewLookupCache()
}

func provideNotificationRepo(db *gorm.DB) repositories.NotificationRepository {
	return repositories.NewNotificationRepository(db)
}

func provideNotificationService(
	notificationRepo repositories.NotificationRepository,
	restaurantRepo repositories.RestaurantRepository,
	accountRepo repositories.AccountRepository,
	pushHub *hub.Hub,
	names mem.LookupStore) services.NotificationServiceInterface {
	return services.NewNotificationService(notificationRepo, restaurantRepo, accountRepo, pushHub, names)
}
