package websocket

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"dealroom/internal/infrastructure/metrics"
	"dealroom/pkg/logger"
)

var ErrHubClosed = errors.New("websocket: hub is shut down")

const (
	userChannelPrefix = "user:"
	dealChannelPrefix = "deal:"
)

func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

func DealChannel(dealID string) string {
	return dealChannelPrefix + dealID
}

// DealIDFromChannel returns the deal id of a deal channel.
func DealIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, dealChannelPrefix) {
		return "", false
	}
	return strings.TrimPrefix(channel, dealChannelPrefix), true
}

// Hub tracks connected clients and their channel memberships. Channels are
// created on first join and removed when their last member leaves.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]map[string]struct{}
	channels map[string]map[*Client]struct{}
	closed   bool

	metrics *metrics.Metrics
	now     func() time.Time
}

type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Channels    int `json:"channels"`
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:  make(map[*Client]map[string]struct{}),
		channels: make(map[string]map[*Client]struct{}),
		metrics:  m,
		now:      time.Now,
	}
}

// Start shuts the hub down once ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		h.Shutdown()
	}()
}

// Register adds the client and joins it to its user channel.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if _, ok := h.clients[c]; ok {
		return nil
	}

	h.clients[c] = make(map[string]struct{})
	h.join(c, UserChannel(c.Principal.ID))
	h.metrics.ConnectionOpened()

	logger.Info("Client registered: user=%s conn=%s", c.Principal.ID, c.ID)
	return nil
}

// Unregister removes the client from every channel and closes its queue.
// Calling it more than once is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.remove(c) {
		logger.Info("Client unregistered: user=%s conn=%s", c.Principal.ID, c.ID)
	}
}

func (h *Hub) remove(c *Client) bool {
	memberships, ok := h.clients[c]
	if !ok {
		return false
	}
	for channel := range memberships {
		h.leave(c, channel)
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.ConnectionClosed()
	return true
}

// Join reports false if the client is not registered.
func (h *Hub) Join(c *Client, channel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	h.join(c, channel)
	return true
}

func (h *Hub) join(c *Client, channel string) {
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[*Client]struct{})
		h.channels[channel] = members
	}
	members[c] = struct{}{}
	h.clients[c][channel] = struct{}{}
}

func (h *Hub) Leave(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	h.leave(c, channel)
}

func (h *Hub) leave(c *Client, channel string) {
	if members, ok := h.channels[channel]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.channels, channel)
		}
	}
	delete(h.clients[c], channel)
}

func (h *Hub) IsMember(c *Client, channel string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.channels[channel][c]
	return ok
}

// Channels lists the channels the client currently belongs to.
func (h *Hub) Channels(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.clients[c]))
	for channel := range h.clients[c] {
		out = append(out, channel)
	}
	return out
}

// Broadcast delivers the event to every member of channel and returns how
// many clients it was queued for.
func (h *Hub) Broadcast(channel, event string, payload interface{}) int {
	return h.BroadcastExcept(channel, event, payload, nil)
}

// BroadcastExcept is Broadcast without exclude. Clients whose queue is full
// are dropped.
func (h *Hub) BroadcastExcept(channel, event string, payload interface{}, exclude *Client) int {
	data, err := encode(event, payload, h.now())
	if err != nil {
		logger.Error("websocket: failed to encode %s: %v", event, err)
		return 0
	}

	var (
		delivered int
		slow      []*Client
	)

	h.mu.RLock()
	for c := range h.channels[channel] {
		if c == exclude {
			continue
		}
		select {
		case c.send <- data:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	h.metrics.Broadcast(event)
	h.drop(slow)
	return delivered
}

func (h *Hub) drop(slow []*Client) {
	if len(slow) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range slow {
		if h.remove(c) {
			h.metrics.ClientDropped()
			logger.Warn("websocket: dropped slow client user=%s conn=%s", c.Principal.ID, c.ID)
		}
	}
}

func (h *Hub) BroadcastToDeal(dealID, event string, payload interface{}) {
	h.Broadcast(DealChannel(dealID), event, payload)
}

// SendToUser reaches every connection of the user.
func (h *Hub) SendToUser(userID, event string, payload interface{}) {
	h.Broadcast(UserChannel(userID), event, payload)
}

// Send queues the event for a single client.
func (h *Hub) Send(c *Client, event string, payload interface{}) bool {
	data, err := encode(event, payload, h.now())
	if err != nil {
		logger.Error("websocket: failed to encode %s: %v", event, err)
		return false
	}

	h.mu.RLock()
	_, registered := h.clients[c]
	queued := false
	if registered {
		select {
		case c.send <- data:
			queued = true
		default:
		}
	}
	h.mu.RUnlock()

	if registered && !queued {
		h.drop([]*Client{c})
	}
	return queued
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make(map[string]struct{})
	for c := range h.clients {
		users[c.Principal.ID] = struct{}{}
	}
	return Stats{
		Connections: len(h.clients),
		Users:       len(users),
		Channels:    len(h.channels),
	}
}

// Shutdown closes every client queue and refuses new registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		h.remove(c)
	}
	logger.Info("websocket hub shut down")
}
