package websocket

import (
	"encoding/json"
	"time"
)

// EventKind enumerates the events a client may send. Anything else parses
// to EventUnknown.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventJoinDeal
	EventLeaveDeal
	EventSendMessage
	EventTypingStart
	EventTypingStop
	EventMarkRead
	EventUpdatePrice
	EventPing
)

var eventKinds = map[string]EventKind{
	"join_deal":    EventJoinDeal,
	"leave_deal":   EventLeaveDeal,
	"send_message": EventSendMessage,
	"typing_start": EventTypingStart,
	"typing_stop":  EventTypingStop,
	"mark_read":    EventMarkRead,
	"update_price": EventUpdatePrice,
	"ping":         EventPing,
}

func ParseEventKind(name string) EventKind {
	return eventKinds[name]
}

func (k EventKind) String() string {
	for name, kind := range eventKinds {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Outbound event names.
const (
	EventNewNotification   = "new_notification"
	EventNewMessage        = "new_message"
	EventMessageRead       = "message_read"
	EventUserTyping        = "user_typing"
	EventUserStopTyping    = "user_stop_typing"
	EventPriceUpdated      = "price_updated"
	EventDealStatusUpdated = "deal_status_updated"
	EventDealUpdated       = "deal_updated"
	EventNewDocument       = "new_document"
	EventDocumentDeleted   = "document_deleted"
	EventPresenceUpdated   = "presence_updated"
	EventJoinedDeal        = "joined_deal"
	EventPong              = "pong"
	EventError             = "error"
)

// Inbound is the raw client envelope; Data is decoded once Type is known.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Envelope is what every connection receives.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type DealRef struct {
	DealID string `json:"dealId" validate:"required"`
}

type SendMessageData struct {
	DealID  string `json:"dealId" validate:"required"`
	Message string `json:"message" validate:"required,max=4000"`
}

type MarkReadData struct {
	MessageID string `json:"messageId" validate:"required"`
}

type UpdatePriceData struct {
	DealID string  `json:"dealId" validate:"required"`
	Price  float64 `json:"price"`
}

type TypingData struct {
	DealID   string `json:"dealId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

func encode(event string, payload interface{}, at time.Time) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      event,
		Data:      payload,
		Timestamp: at.UTC().Format(time.RFC3339),
	})
}
