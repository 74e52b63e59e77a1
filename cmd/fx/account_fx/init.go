package account_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
	"tably/internal/repositories"
	"tably/internal/services"
)

var Module = fx.Provide(
	provideAccountRepo, provideRestaurantRepo, provideAccountService)

func provideAccountRepo(db *gorm.DB) repositories.AccountRepository {
	return repositories.NewAccountRepository(db)
}

func provideRestaurantRepo(db *gorm.DB) repositories.RestaurantRepository {
	return repositories.NewRestaurantRepository(db)
}

func provideAccountService(
	accountRepo repositories.AccountRepository,
	restaurantRepo repositories.RestaurantRepository,
	planRepo repositories.IPlanRepository,
	subRepo repositories.SubscriptionRepository,
	eventRepo repositories.EventRepository) services.AccountServiceInterface {
	return services.NewAccountService(accountRepo, restaurantRepo, planRepo, subRepo, eventRepo)
}
