package router

import (
	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/handler"
)

// SetupWebSocketRouter mounts /ws. The handler authenticates itself since
// browsers pass the token as a query parameter.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
