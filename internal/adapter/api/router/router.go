package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"dealroom/internal/adapter/api/handler"
	"dealroom/internal/adapter/api/middleware"
	"dealroom/internal/infrastructure/ratelimit"
)

// Handlers groups everything the routers mount. DevToken is nil outside
// development.
type Handlers struct {
	Deal         *handler.DealHandler
	Message      *handler.MessageHandler
	Document     *handler.DocumentHandler
	Notification *handler.NotificationHandler
	User         *handler.UserHandler
	Admin        *handler.AdminHandler
	DevToken     *handler.DevTokenHandler
	Health       *handler.HealthHandler
	WebSocket    *handler.WebSocketHandler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware, limiter *ratelimit.RateLimiter, gatherer prometheus.Gatherer) {
	SetupDealRouter(e, h.Deal, authMiddleware, limiter)
	SetupMessageRouter(e, h.Message, authMiddleware, limiter)
	SetupDocumentRouter(e, h.Document, authMiddleware)
	SetupNotificationRouter(e, h.Notification, authMiddleware)
	SetupUserRouter(e, h.User, authMiddleware)
	SetupAdminRouter(e, h.Admin, authMiddleware, adminMiddleware)
	SetupDevRouter(e, h.DevToken)
	SetupHealthRouter(e, h.Health)
	SetupMetricsRouter(e, gatherer)
	SetupWebSocketRouter(e, h.WebSocket)
}
