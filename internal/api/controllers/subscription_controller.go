package controllers

import (
	"github.com/gin-gonic/gin"
	"tably/internal/services"
	"tably/pkg/utils"
)

type SubscriptionController struct {
	subscriptionService services.SubscriptionServiceInterface
}

func NewSubscriptionController(subscriptionService services.SubscriptionServiceInterface) *SubscriptionController {
	return &SubscriptionController{
		subscriptionService: subscriptionService,
	}
}

func (s *SubscriptionController) GetStatus(c *gin.Context) {

	restaurantID := c.Param("restaurantId")

	snapshot, err := s.subscriptionService.GetSnapshot(c.Request.Context(), restaurantID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, snapshot, "Fetched subscription status")
}

func (s *SubscriptionController) GetEvents(c *gin.Context) {

	restaurantID := c.Param("restaurantId")

	events, err := s.subscriptionService.GetEvents(c.Request.Context(), restaurantID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, events, "Fetched subscription events")
}
