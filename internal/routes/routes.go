package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/heartlink/backend/internal/handlers"
	"github.com/heartlink/backend/internal/middleware"
)

// RegisterLotteryRoutes registers the referral lottery routes
func RegisterLotteryRoutes(router *gin.Engine, lotteryHandler *handlers.LotteryHandler, rateLimiter *middleware.RateLimiter) {
	lotteryGroup := router.Group("/api/lottery")
	lotteryGroup.Use(rateLimiter.IPRateLimiterMiddleware())
	{
		// Public campaign listing
		lotteryGroup.GET("/campaigns", lotteryHandler.GetActiveCampaigns)

		// Member endpoints
		authGroup := lotteryGroup.Group("")
		authGroup.Use(middleware.AuthMiddleware())
		{
			authGroup.POST("/campaigns/:id/enter", lotteryHandler.EnterLottery)
			authGroup.GET("/entries", lotteryHandler.GetUserEntries)
		}

		// Admin endpoints
		adminGroup := lotteryGroup.Group("")
		adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
		{
			adminGroup.POST("/campaigns", lotteryHandler.CreateCampaign)
			adminGroup.POST("/campaigns/:id/draw", lotteryHandler.DrawWinners)
			adminGroup.GET("/campaigns/:id/analytics", lotteryHandler.GetAnalytics)
		}
	}
}
