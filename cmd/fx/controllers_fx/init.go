package controllers_fx

import (
	"go.uber.org/fx"
	"tably/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewAccountController),
	fx.Provide(controllers.NewSubscriptionController),
	fx.Provide(controllers.NewAdminController),
	fx.Provide(controllers.NewNotificationController))
