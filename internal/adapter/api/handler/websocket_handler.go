package handler

import (
	"context"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/middleware"
	ws "dealroom/internal/infrastructure/websocket"
	"dealroom/internal/usecase"
	"dealroom/pkg/logger"
	"dealroom/pkg/response"
)

type WebSocketHandler struct {
	baseCtx       context.Context
	hub           *ws.Hub
	authenticator *usecase.Authenticator
	realtime      ws.MessageHandler
	sendBuffer    int
	upgrader      gorillaws.Upgrader
}

// NewWebSocketHandler serves /ws. baseCtx outlives the upgrade request and
// is handed to the read loop.
func NewWebSocketHandler(
	baseCtx context.Context,
	hub *ws.Hub,
	authenticator *usecase.Authenticator,
	realtime ws.MessageHandler,
	sendBuffer int,
	allowAnyOrigin bool,
) *WebSocketHandler {
	upgrader := gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if allowAnyOrigin {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	return &WebSocketHandler{
		baseCtx:       baseCtx,
		hub:           hub,
		authenticator: authenticator,
		realtime:      realtime,
		sendBuffer:    sendBuffer,
		upgrader:      upgrader,
	}
}

// HandleWebSocket authenticates before upgrading so a rejected credential
// gets a plain 401.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	principal, err := h.authenticator.Authenticate(c.Request().Context(), middleware.Credential(c))
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("websocket: upgrade failed for user %s: %v", principal.ID, err)
		return nil
	}

	client := ws.NewClient(h.hub, conn, *principal, h.sendBuffer)
	if err := h.hub.Register(client); err != nil {
		conn.WriteMessage(gorillaws.CloseMessage,
			gorillaws.FormatCloseMessage(gorillaws.CloseGoingAway, err.Error()))
		conn.Close()
		return nil
	}

	logger.Info("websocket: user %s connected as %s", principal.ID, client.ID)

	go client.WritePump()
	go client.ReadPump(h.baseCtx, h.realtime)

	return nil
}
