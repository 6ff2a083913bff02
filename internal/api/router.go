package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/config"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/rest/middleware"
)

// NewRouter assembles the admin/ops HTTP surface: health, task
// cancellation, webhook endpoint CRUD, and subscription history reads.
// This is not the customer-facing billing API - it is the minimal
// operator surface the engine needs to be inspectable and controllable
// from outside its own dispatcher/sweeper loops.
func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	router := gin.Default()
	router.Use(
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
	)

	router.GET("/health", handlers.Health.Health)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/v1", middleware.AuthMiddleware(cfg, log))
	v1.Use(middleware.ErrorHandler())
	{
		tasks := v1.Group("/tasks")
		{
			tasks.POST("/:id/cancel", handlers.Task.Cancel)
		}

		webhooks := v1.Group("/webhook-endpoints")
		{
			webhooks.POST("", handlers.Webhook.Create)
			webhooks.GET("", handlers.Webhook.List)
			webhooks.GET("/:id", handlers.Webhook.Get)
			webhooks.PUT("/:id", handlers.Webhook.Update)
			webhooks.DELETE("/:id", handlers.Webhook.Delete)
		}

		subscriptions := v1.Group("/subscriptions")
		{
			subscriptions.GET("/:id/history", handlers.Subscription.ListHistory)
		}
	}

	return router
}
