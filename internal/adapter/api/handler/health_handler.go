package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"dealroom/internal/domain/service"
	"dealroom/internal/usecase"
)

type HealthHandler struct {
	cache    service.Cache
	firebase usecase.ConnectionTester
}

// NewHealthHandler accepts a nil firebase tester when Firebase is not in use.
func NewHealthHandler(cache service.Cache, firebase usecase.ConnectionTester) *HealthHandler {
	return &HealthHandler{
		cache:    cache,
		firebase: firebase,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "Server is running",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// CheckReadiness probes the cache and, when configured, Firebase Auth.
func (h *HealthHandler) CheckReadiness(c echo.Context) error {
	ctx := c.Request().Context()
	checks := map[string]string{}
	status := http.StatusOK

	if err := h.cache.Ping(ctx); err != nil {
		checks["cache"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["cache"] = "ok"
	}

	if h.firebase != nil {
		if err := h.firebase.TestConnection(ctx); err != nil {
			checks["firebase"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["firebase"] = "ok"
		}
	}

	return c.JSON(status, map[string]interface{}{
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	})
}
