package router

import (
	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/handler"
)

// SetupDevRouter is a no-op unless a dev token handler was built.
func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler) {
	if devTokenHandler == nil {
		return
	}

	e.POST("/_dev/token", devTokenHandler.GenerateToken)
}
