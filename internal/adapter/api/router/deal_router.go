package router

import (
	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/handler"
	"dealroom/internal/adapter/api/middleware"
	"dealroom/internal/infrastructure/ratelimit"
)

func SetupDealRouter(e *echo.Echo, dealHandler *handler.DealHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	deals := e.Group("/v1/deals")
	deals.Use(authMiddleware.Authenticate)

	deals.POST("", dealHandler.CreateDeal)
	deals.GET("", dealHandler.ListDeals) // ?status=&open=true&page=&limit=
	deals.GET("/:id", dealHandler.GetDeal)
	deals.PATCH("/:id", dealHandler.UpdateDeal)
	deals.DELETE("/:id", dealHandler.DeleteDeal)

	deals.PUT("/:id/status", dealHandler.UpdateStatus)
	deals.PUT("/:id/price", dealHandler.UpdatePrice, middleware.RateLimit(limiter, "update_price"))

	deals.GET("/:id/snapshot", dealHandler.GetSnapshot)
	deals.GET("/:id/presence", dealHandler.GetPresence)
}
