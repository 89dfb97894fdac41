package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/heartlink/backend/internal/handlers"
	"github.com/heartlink/backend/internal/middleware"
)

// RegisterWebhookRoutes registers routes called by external providers.
// These endpoints authenticate with provider signatures, not JWTs, so they
// sit outside the auth middleware; the rate limiter still applies.
func RegisterWebhookRoutes(router *gin.Engine, webhookHandler *handlers.WebhookHandler, rateLimiter *middleware.RateLimiter) {
	webhookGroup := router.Group("/api/v1/webhooks")
	webhookGroup.Use(rateLimiter.IPRateLimiterMiddleware())
	{
		// Email provider event batches
		webhookGroup.POST("/sendgrid/events", webhookHandler.SendGridWebhook)

		// Task-automation provider events
		webhookGroup.POST("/manus", webhookHandler.ManusWebhook)
	}
}
