package websocket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dealroom/internal/domain/entity"
	"dealroom/pkg/errors"
	"dealroom/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// MessageHandler processes the events read from a client. HandleMessage is
// called sequentially for a given connection.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, raw []byte)
	HandleDisconnect(client *Client)
}

// Client represents a WebSocket connection client
type Client struct {
	ID        string
	Principal entity.Principal

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewClient creates a client for conn. conn may be nil for connections
// that are driven without a socket.
func NewClient(hub *Hub, conn *websocket.Conn, principal entity.Principal, buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		ID:        uuid.New().String(),
		Principal: principal,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, buffer),
	}
}

// Outbound exposes the queue drained by WritePump. It is closed when the
// client is unregistered.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

func (c *Client) Send(event string, payload interface{}) bool {
	return c.hub.Send(c, event, payload)
}

// SendError reports err to this client only.
func (c *Client) SendError(err error) {
	appErr := errors.As(err)
	c.Send(EventError, ErrorData{Message: appErr.Message, Code: appErr.Code})
}

// ReadPump reads messages from the WebSocket connection until it fails,
// then unregisters the client.
func (c *Client) ReadPump(ctx context.Context, handler MessageHandler) {
	defer func() {
		handler.HandleDisconnect(c)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket: read error for user %s: %v", c.Principal.ID, err)
			}
			return
		}

		handler.HandleMessage(ctx, c, message)
	}
}

// WritePump sends queued messages and keepalive pings to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("websocket: write to user %s failed: %v", c.Principal.ID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
