package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"tably/internal/models/db_models"
	"tably/internal/models/request_models"
	"tably/internal/models/response_models"
	"tably/internal/repositories"
	"tably/pkg/utils"
)

type AccountServiceInterface interface {
	Login(ctx context.Context, request request_models.LoginRequest) (response_models.LoginResponse, error)
	CreateOwnerAccount(ctx context.Context, request request_models.SignUpRequest) error
}

type AccountService struct {
	accountRepo    repositories.AccountRepository
	restaurantRepo repositories.RestaurantRepository
	planRepo       repositories.IPlanRepository
	subRepo        repositories.SubscriptionRepository
	eventRepo      repositories.EventRepository
}

func NewAccountService(
	accountRepo repositories.AccountRepository,
	restaurantRepo repositories.RestaurantRepository,
	planRepo repositories.IPlanRepository,
	subRepo repositories.SubscriptionRepository,
	eventRepo repositories.EventRepository,
) AccountServiceInterface {
	return &AccountService{
		accountRepo:    accountRepo,
		restaurantRepo: restaurantRepo,
		planRepo:       planRepo,
		subRepo:        subRepo,
		eventRepo:      eventRepo,
	}
}

func (a *AccountService) Login(ctx context.Context, request request_models.LoginRequest) (response_models.LoginResponse, error) {

	account, err := a.accountRepo.FindByEmail(ctx, request.Email)
	if err != nil {
		return response_models.LoginResponse{}, utils.ErrDatabaseError
	}

	if account == nil {
		return response_models.LoginResponse{}, utils.ErrAccountNotFound
	}

	if err := utils.ComparePasswords(account.PasswordHash, request.Password); err != nil {
		return response_models.LoginResponse{}, utils.ErrInvalidCredentials
	}

	restaurantID := ""
	if account.RestaurantID != nil {
		restaurantID = account.RestaurantID.String()
	}

	token, err := utils.CreateToken(account.ID, restaurantID, account.Role)
	if err != nil {
		return response_models.LoginResponse{}, utils.ErrInvalidCredentials
	}

	return response_models.LoginResponse{
		Token:        token,
		AccountID:    account.ID.String(),
		RestaurantID: restaurantID,
		Role:         account.Role,
	}, nil
}

func (a *AccountService) CreateOwnerAccount(ctx context.Context, request request_models.SignUpRequest) error {

	existing, err := a.accountRepo.FindByEmail(ctx, request.Email)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if existing != nil {
		return utils.ErrInvalidCredentials
	}

	hash, err := utils.HashPassword(request.Password)
	if err != nil {
		return err
	}

	account := &db_models.Account{
		DisplayName:  request.DisplayName,
		Email:        request.Email,
		PasswordHash: hash,
		Role:         db_models.RoleOwner,
	}
	if err := a.accountRepo.Insert(ctx, account); err != nil {
		return utils.ErrDatabaseError
	}

	restaurant := &db_models.Restaurant{
		Name:           request.RestaurantName,
		Slug:           utils.Slugify(request.RestaurantName),
		OwnerAccountID: account.ID,
		IsActive:       true,
	}
	if err := a.restaurantRepo.Insert(ctx, restaurant); err != nil {
		return utils.ErrDatabaseError
	}

	account.RestaurantID = &restaurant.ID
	if err := a.accountRepo.Update(ctx, account); err != nil {
		log.Printf("account: link restaurant %s to account %s: %v", restaurant.ID, account.ID, err)
	}

	a.provisionSubscription(ctx, restaurant)

	return nil
}

// provisionSubscription puts the new restaurant on the default plan and opens
// its trial window. Provisioning failure is not fatal to signup; an admin can
// start the trial by hand.
func (a *AccountService) provisionSubscription(ctx context.Context, restaurant *db_models.Restaurant) {

	planCode := os.Getenv("DEFAULT_PLAN_CODE")
	if planCode == "" {
		planCode = "free"
	}

	plan, err := a.planRepo.GetPlanByCode(ctx, planCode)
	if err != nil || plan == nil {
		log.Printf("account: default plan %q unavailable for restaurant %s: %v", planCode, restaurant.ID, err)
		return
	}

	sub := &db_models.Subscription{
		RestaurantID: restaurant.ID,
		PlanID:       plan.ID,
		Status:       db_models.SubStatusTrialing,
	}

	trialDays := int64(plan.TrialDays)
	if trialDays <= 0 {
		trialDays = 14
	}
	start := utils.NowUnixSeconds()
	end := start + trialDays*daySeconds
	sub.TrialStartAt = &start
	sub.TrialEndAt = &end

	if err := a.subRepo.Insert(ctx, sub); err != nil {
		log.Printf("account: provision subscription for restaurant %s: %v", restaurant.ID, err)
		return
	}

	event := &db_models.SubscriptionEvent{
		RestaurantID:   restaurant.ID,
		SubscriptionID: sub.ID,
		EventType:      db_models.EventTrialStarted,
		Metadata:       []byte(fmt.Sprintf(`{"days":%d,"plan":%q}`, trialDays, plan.Code)),
	}
	if err := a.eventRepo.Append(ctx, event); err != nil {
		log.Printf("account: record trial start for restaurant %s: %v", restaurant.ID, err)
	}
}
