package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	ws "dealroom/internal/infrastructure/websocket"
	"dealroom/pkg/response"
)

type AdminHandler struct {
	hub *ws.Hub
}

func NewAdminHandler(hub *ws.Hub) *AdminHandler {
	return &AdminHandler{
		hub: hub,
	}
}

// GetConnectionStats reports what the realtime hub currently holds.
func (h *AdminHandler) GetConnectionStats(c echo.Context) error {
	return response.Success(c, map[string]interface{}{
		"stats":       h.hub.Stats(),
		"lastUpdated": time.Now().UTC().Format(time.RFC3339),
	})
}
