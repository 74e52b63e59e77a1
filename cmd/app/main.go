package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"tably/cmd/fx/account_fx"
	"tably/cmd/fx/controllers_fx"
	"tably/cmd/fx/db_fx"
	"tably/cmd/fx/notification_fx"
	"tably/cmd/fx/scheduler_fx"
	"tably/cmd/fx/subscription_fx"
	"tably/internal/api/controllers"
	"tably/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	app := fx.New(
		db_fx.Module,
		account_fx.Module,
		subscription_fx.Module,
		notification_fx.Module,
		scheduler_fx.Module,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Println("Starting HTTP server at ${PORT}")
				if err := engine.Run(":" + os.Getenv("PORT")); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	accountController *controllers.AccountController,
	subscriptionController *controllers.SubscriptionController,
	adminController *controllers.AdminController,
	notificationController *controllers.NotificationController) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, accountController, subscriptionController, adminController, notificationController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	accountController *controllers.AccountController,
	subscriptionController *controllers.SubscriptionController,
	adminController *controllers.AdminController,
	notificationController *controllers.NotificationController) {

	authGroup := r.Group("/auth")
	authGroup.POST("/login", accountController.Login)
	authGroup.POST("/signup", accountController.SignUp)

	api := r.Group("/", middleware.JWTAuthMiddleware())

	subscriptions := api.Group("/subscriptions")
	subscriptions.GET("/:restaurantId/status", subscriptionController.GetStatus)
	subscriptions.GET("/:restaurantId/events", subscriptionController.GetEvents)

	notifications := api.Group("/notifications")
	notifications.GET("", notificationController.ListRecent)
	notifications.POST("/:id/read", notificationController.MarkRead)
	notifications.GET("/preferences", notificationController.GetPreference)
	notifications.PUT("/preferences", notificationController.SetPreference)

	// Push transports; token arrives as a query parameter here.
	api.GET("/ws/notifications", notificationController.StreamWebSocket)
	api.GET("/stream/notifications", notificationController.StreamSSE)

	admin := api.Group("/admin", middleware.RoleMiddleware("admin"))
	admin.POST("/subscriptions/:restaurantId/grant-days", adminController.GrantDays)
	admin.POST("/subscriptions/:restaurantId/set-trial-days", adminController.SetTrialDays)
	admin.POST("/subscriptions/:restaurantId/set-paid-days", adminController.SetPaidDays)
	admin.POST("/subscriptions/:restaurantId/suspend", adminController.Suspend)
	admin.POST("/subscriptions/:restaurantId/unsuspend", adminController.Unsuspend)
	admin.POST("/subscriptions/:restaurantId/start-trial", adminController.StartTrial)
	admin.POST("/lifecycle/run-daily", adminController.RunDaily)
}
