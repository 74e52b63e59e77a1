package subscription_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
	"tably/internal/repositories"
	"tably/internal/services"
)

var Module = fx.Provide(
	provideSubscriptionRepo,
	provideEventRepo,
	providePlanRepo,
	provideSubscriptionService,
	provideLifecycleService)

func provideSubscriptionRepo(db *gorm.DB) repositories.SubscriptionRepository {
	return repositories.NewSubscriptionRepository(db)
}

func provideEventRepo(db *gorm.DB) repositories.EventRepository {
	return repositories.NewEventRepository(db)
}

func providePlanRepo(db *gorm.DB) repositories.IPlanRepository {
	return repositories.NewPlanRepository(db)
}

func provideSubscriptionService(
	subRepo repositories.SubscriptionRepository,
	eventRepo repositories.EventRepository) services.SubscriptionServiceInterface {
	return services.NewSubscriptionService(subRepo, eventRepo)
}

func provideLifecycleService(
	subRepo repositories.SubscriptionRepository,
	eventRepo repositories.EventRepository,
	restaurantRepo repositories.RestaurantRepository,
	notifications services.NotificationServiceInterface) services.LifecycleServiceInterface {
	return services.NewLifecycleService(subRepo, eventRepo, restaurantRepo, notifications)
}
