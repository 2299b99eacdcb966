package router

import (
	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/handler"
	"dealroom/internal/adapter/api/middleware"
	"dealroom/internal/infrastructure/ratelimit"
)

func SetupMessageRouter(e *echo.Echo, messageHandler *handler.MessageHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	deals := e.Group("/v1/deals")
	deals.Use(authMiddleware.Authenticate)

	deals.POST("/:id/messages", messageHandler.SendMessage, middleware.RateLimit(limiter, "send_message"))
	deals.GET("/:id/messages", messageHandler.GetHistory)   // cached window
	deals.GET("/:id/messages/page", messageHandler.GetPage) // ?page=&limit=

	messages := e.Group("/v1/messages")
	messages.Use(authMiddleware.Authenticate)

	messages.PUT("/:id/read", messageHandler.MarkRead)
}
