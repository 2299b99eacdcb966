package router

import (
	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/handler"
	"dealroom/internal/adapter/api/middleware"
)

func SetupDocumentRouter(e *echo.Echo, documentHandler *handler.DocumentHandler, authMiddleware *middleware.AuthMiddleware) {
	deals := e.Group("/v1/deals")
	deals.Use(authMiddleware.Authenticate)

	deals.POST("/:id/documents", documentHandler.UploadDocument)
	deals.GET("/:id/documents", documentHandler.ListDocuments)

	documents := e.Group("/v1/documents")
	documents.Use(authMiddleware.Authenticate)

	documents.DELETE("/:id", documentHandler.DeleteDocument)
}
