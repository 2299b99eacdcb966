package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/go-playground/validator/v10"

	"dealroom/internal/infrastructure/metrics"
	"dealroom/internal/infrastructure/ratelimit"
	ws "dealroom/internal/infrastructure/websocket"
	"dealroom/internal/usecase"
	"dealroom/pkg/errors"
	"dealroom/pkg/logger"
	"dealroom/pkg/response"
)

// RealtimeHandler dispatches the events read from websocket clients.
type RealtimeHandler struct {
	hub      *ws.Hub
	deals    *usecase.DealUseCase
	messages *usecase.MessageUseCase
	presence *usecase.PresenceTracker
	limiter  *ratelimit.RateLimiter
	validate *validator.Validate
	metrics  *metrics.Metrics
}

var _ ws.MessageHandler = (*RealtimeHandler)(nil)

func NewRealtimeHandler(
	hub *ws.Hub,
	deals *usecase.DealUseCase,
	messages *usecase.MessageUseCase,
	presence *usecase.PresenceTracker,
	limiter *ratelimit.RateLimiter,
	m *metrics.Metrics,
) *RealtimeHandler {
	return &RealtimeHandler{
		hub:      hub,
		deals:    deals,
		messages: messages,
		presence: presence,
		limiter:  limiter,
		validate: validator.New(),
		metrics:  m,
	}
}

// PresenceUpdate is the payload of presence_updated and joined_deal.
type PresenceUpdate struct {
	DealID string   `json:"dealId"`
	Online []string `json:"online"`
}

func (h *RealtimeHandler) HandleMessage(ctx context.Context, client *ws.Client, raw []byte) {
	var in ws.Inbound
	if err := json.Unmarshal(raw, &in); err != nil || in.Type == "" {
		h.metrics.InboundEvent("unknown", "malformed")
		client.SendError(errors.BadRequest("Invalid message format", err))
		return
	}

	kind := ws.ParseEventKind(in.Type)
	if kind == ws.EventUnknown {
		h.metrics.InboundEvent("unknown", "rejected")
		client.SendError(errors.BadRequest("Unknown event type: "+in.Type, nil))
		return
	}

	if kind != ws.EventPing && h.limiter != nil {
		if ok, _ := h.limiter.Allow(client.Principal.ID, rateAction(kind)); !ok {
			h.metrics.InboundEvent(kind.String(), "rate_limited")
			client.SendError(errors.TooManyRequests("Too many " + kind.String() + " events"))
			return
		}
	}

	if err := h.dispatch(ctx, client, kind, in.Data); err != nil {
		h.metrics.InboundEvent(kind.String(), "error")
		if appErr := errors.As(err); appErr.Status >= 500 {
			logger.Error("websocket: %s from user %s failed: %v", kind, client.Principal.ID, err)
		}
		client.SendError(err)
		return
	}
	h.metrics.InboundEvent(kind.String(), "ok")
}

// rateAction maps an event to its rate limit policy. Typing start and stop
// share one bucket.
func rateAction(kind ws.EventKind) string {
	if kind == ws.EventTypingStart || kind == ws.EventTypingStop {
		return "typing"
	}
	return kind.String()
}

func (h *RealtimeHandler) dispatch(ctx context.Context, client *ws.Client, kind ws.EventKind, data json.RawMessage) error {
	principal := &client.Principal

	switch kind {
	case ws.EventJoinDeal:
		var ref ws.DealRef
		if err := h.decode(data, &ref); err != nil {
			return err
		}
		return h.join(ctx, client, ref.DealID)

	case ws.EventLeaveDeal:
		var ref ws.DealRef
		if err := h.decode(data, &ref); err != nil {
			return err
		}
		return h.leave(ctx, client, ref.DealID)

	case ws.EventSendMessage:
		var msg ws.SendMessageData
		if err := h.decode(data, &msg); err != nil {
			return err
		}
		_, err := h.messages.Send(ctx, principal, msg.DealID, msg.Message)
		return err

	case ws.EventTypingStart, ws.EventTypingStop:
		var ref ws.DealRef
		if err := h.decode(data, &ref); err != nil {
			return err
		}
		if !h.hub.IsMember(client, ws.DealChannel(ref.DealID)) {
			return errors.Forbidden("Join the deal before sending typing events", nil)
		}
		event := ws.EventUserTyping
		if kind == ws.EventTypingStop {
			event = ws.EventUserStopTyping
		}
		h.hub.BroadcastExcept(ws.DealChannel(ref.DealID), event, ws.TypingData{
			DealID:   ref.DealID,
			UserID:   principal.ID,
			UserName: principal.Name,
		}, client)
		return nil

	case ws.EventMarkRead:
		var mark ws.MarkReadData
		if err := h.decode(data, &mark); err != nil {
			return err
		}
		_, err := h.messages.MarkRead(ctx, principal, mark.MessageID)
		return err

	case ws.EventUpdatePrice:
		var update ws.UpdatePriceData
		if err := h.decode(data, &update); err != nil {
			return err
		}
		_, err := h.deals.UpdatePrice(ctx, principal, update.DealID, update.Price)
		return err

	case ws.EventPing:
		client.Send(ws.EventPong, map[string]string{"status": "ok"})
		return nil
	}

	return errors.BadRequest("Unknown event type", nil)
}

func (h *RealtimeHandler) join(ctx context.Context, client *ws.Client, dealID string) error {
	if _, err := h.deals.Authorize(ctx, &client.Principal, dealID); err != nil {
		return err
	}

	if !h.hub.Join(client, ws.DealChannel(dealID)) {
		return errors.Conflict("Connection is no longer registered")
	}
	if err := h.presence.Join(ctx, dealID, client.Principal.ID); err != nil {
		logger.Warn("websocket: presence join for deal %s: %v", dealID, err)
	}

	update := h.presenceUpdate(ctx, dealID)
	client.Send(ws.EventJoinedDeal, update)
	h.hub.BroadcastExcept(ws.DealChannel(dealID), ws.EventPresenceUpdated, update, client)
	return nil
}

func (h *RealtimeHandler) leave(ctx context.Context, client *ws.Client, dealID string) error {
	channel := ws.DealChannel(dealID)
	if !h.hub.IsMember(client, channel) {
		return nil
	}

	h.hub.Leave(client, channel)
	if err := h.presence.Leave(ctx, dealID, client.Principal.ID); err != nil {
		logger.Warn("websocket: presence leave for deal %s: %v", dealID, err)
	}
	h.hub.Broadcast(channel, ws.EventPresenceUpdated, h.presenceUpdate(ctx, dealID))
	return nil
}

func (h *RealtimeHandler) presenceUpdate(ctx context.Context, dealID string) PresenceUpdate {
	online, err := h.presence.Online(ctx, dealID)
	if err != nil {
		online = nil
	}
	if online == nil {
		online = []string{}
	}
	return PresenceUpdate{DealID: dealID, Online: online}
}

// HandleDisconnect stops the typing indicator in every deal the client had
// joined. Presence is left to expire.
func (h *RealtimeHandler) HandleDisconnect(client *ws.Client) {
	for _, channel := range h.hub.Channels(client) {
		dealID, ok := ws.DealIDFromChannel(channel)
		if !ok {
			continue
		}
		h.hub.BroadcastExcept(channel, ws.EventUserStopTyping, ws.TypingData{
			DealID:   dealID,
			UserID:   client.Principal.ID,
			UserName: client.Principal.Name,
		}, client)
	}
}

func (h *RealtimeHandler) decode(data json.RawMessage, out interface{}) error {
	if len(data) == 0 {
		return errors.BadRequest("Missing event data", nil)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.BadRequest("Invalid event data", err)
	}
	if err := h.validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			return errors.BadRequest(response.ValidationMessage(verrs), err)
		}
		return errors.BadRequest("Invalid event data", err)
	}
	return nil
}
