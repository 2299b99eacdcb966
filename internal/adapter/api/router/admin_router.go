package router

import (
	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/handler"
	"dealroom/internal/adapter/api/middleware"
)

func SetupAdminRouter(e *echo.Echo, adminHandler *handler.AdminHandler, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	admin := e.Group("/v1/admin")
	admin.Use(authMiddleware.Authenticate)
	admin.Use(adminMiddleware.AdminOnly)

	admin.GET("/connections", adminHandler.GetConnectionStats)
}
