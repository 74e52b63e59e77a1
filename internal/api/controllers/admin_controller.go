package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"tably/internal/models/request_models"
	"tably/internal/services"
	"tably/pkg/utils"
)

// AdminController exposes the subscription lifecycle actions. Routes behind
// it require the admin role; every handler returns the refreshed snapshot so
// the caller can reconcile immediately.
type AdminController struct {
	lifecycleService services.LifecycleServiceInterface
}

func NewAdminController(lifecycleService services.LifecycleServiceInterface) *AdminController {
	return &AdminController{
		lifecycleService: lifecycleService,
	}
}

func (a *AdminController) GrantDays(c *gin.Context) {

	var request request_models.GrantDaysRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	snapshot, err := a.lifecycleService.GrantPaidDays(c.Request.Context(), c.Param("restaurantId"), request.Days)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, snapshot, "Days granted")
}

func (a *AdminController) SetTrialDays(c *gin.Context) {

	var request request_models.SetTrialDaysRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	snapshot, err := a.lifecycleService.SetTrialDays(c.Request.Context(), c.Param("restaurantId"), request.Days)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, snapshot, "Trial window set")
}

func (a *AdminController) SetPaidDays(c *gin.Context) {

	var request request_models.SetPaidDaysRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	snapshot, err := a.lifecycleService.SetPaidDays(c.Request.Context(), c.Param("restaurantId"), request.Days)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, snapshot, "Paid window set")
}

func (a *AdminController) Suspend(c *gin.Context) {

	var request request_models.SuspendRequest
	if err := c.ShouldBindJSON(&request); err != nil && c.Request.ContentLength > 0 {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	snapshot, err := a.lifecycleService.Suspend(c.Request.Context(), c.Param("restaurantId"), request.Reason)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, snapshot, "Subscription suspended")
}

func (a *AdminController) Unsuspend(c *gin.Context) {

	snapshot, err := a.lifecycleService.Unsuspend(c.Request.Context(), c.Param("restaurantId"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, snapshot, "Subscription restored")
}

func (a *AdminController) StartTrial(c *gin.Context) {

	snapshot, err := a.lifecycleService.StartTrial(c.Request.Context(), c.Param("restaurantId"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, snapshot, "Trial started")
}

// RunDaily triggers the scheduled sweep on demand, for testing time-based
// transitions without waiting for the ticker.
func (a *AdminController) RunDaily(c *gin.Context) {

	n, err := a.lifecycleService.RunDailyCheck(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, gin.H{"transitioned": n}, "Lifecycle sweep completed")
}
