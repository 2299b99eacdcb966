package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"dealroom/internal/domain/entity"
	"dealroom/internal/domain/repository"
	ws "dealroom/internal/infrastructure/websocket"
	"dealroom/pkg/errors"
	"dealroom/pkg/utils"
)

const maxMessageLength = 4000

type MessageUseCase struct {
	messageRepo   repository.MessageRepository
	dealRepo      repository.DealRepository
	history       *HistoryCache
	notifications *NotificationUseCase
	broadcaster   Broadcaster
	locks         *utils.KeyedMutex
	now           func() time.Time
}

func NewMessageUseCase(
	messageRepo repository.MessageRepository,
	dealRepo repository.DealRepository,
	history *HistoryCache,
	notifications *NotificationUseCase,
	broadcaster Broadcaster,
	locks *utils.KeyedMutex,
) *MessageUseCase {
	return &MessageUseCase{
		messageRepo:   messageRepo,
		dealRepo:      dealRepo,
		history:       history,
		notifications: notifications,
		broadcaster:   broadcaster,
		locks:         locks,
		now:           time.Now,
	}
}

// MessageRead is the payload of a message_read event.
type MessageRead struct {
	MessageID string `json:"messageId"`
	DealID    string `json:"dealId"`
	ReadBy    string `json:"readBy"`
}

// Send persists a message, mirrors it into the cached history, notifies the
// other participants and broadcasts it. Closed deals still accept messages.
func (uc *MessageUseCase) Send(ctx context.Context, p *entity.Principal, dealID, content string) (*entity.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.BadRequest("Message cannot be empty", nil)
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, errors.BadRequest(fmt.Sprintf("Message cannot exceed %d characters", maxMessageLength), nil)
	}

	unlock := uc.locks.Lock(dealID)
	defer unlock()

	// Checked under the lock so a concurrent Delete cannot leave an orphan.
	deal, err := uc.participantDeal(ctx, p, dealID)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		DealID:    dealID,
		SenderID:  p.ID,
		Content:   content,
		CreatedAt: uc.now(),
	}
	if err := uc.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	uc.history.Append(ctx, message)
	uc.notifications.NotifyMany(ctx, deal.CounterParties(p.ID), entity.NotificationMessage,
		fmt.Sprintf("New message from %s on \"%s\"", p.Name, deal.Title), dealID)
	uc.broadcaster.BroadcastToDeal(dealID, ws.EventNewMessage, message)

	return message, nil
}

// MarkRead is idempotent; only the first call broadcasts message_read.
func (uc *MessageUseCase) MarkRead(ctx context.Context, p *entity.Principal, messageID string) (*entity.Message, error) {
	message, err := uc.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	unlock := uc.locks.Lock(message.DealID)
	defer unlock()

	if _, err := uc.participantDeal(ctx, p, message.DealID); err != nil {
		return nil, err
	}
	// Re-read under the lock; the deal may have been deleted meanwhile.
	message, err = uc.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.Read {
		return message, nil
	}

	updated, err := uc.messageRepo.MarkRead(ctx, messageID)
	if err != nil {
		return nil, err
	}

	uc.history.Invalidate(ctx, message.DealID)
	uc.broadcaster.BroadcastToDeal(message.DealID, ws.EventMessageRead, MessageRead{
		MessageID: messageID,
		DealID:    message.DealID,
		ReadBy:    p.ID,
	})
	return updated, nil
}

// History returns the deal's messages oldest-first, from the cache when possible.
func (uc *MessageUseCase) History(ctx context.Context, p *entity.Principal, dealID string) ([]*entity.Message, error) {
	if _, err := uc.participantDeal(ctx, p, dealID); err != nil {
		return nil, err
	}
	return uc.history.Messages(ctx, dealID)
}

// Page reads a page of history straight from the store.
func (uc *MessageUseCase) Page(ctx context.Context, p *entity.Principal, dealID string, limit, offset int) ([]*entity.Message, int64, error) {
	if _, err := uc.participantDeal(ctx, p, dealID); err != nil {
		return nil, 0, err
	}
	return uc.messageRepo.ListByDeal(ctx, dealID, limit, offset)
}

func (uc *MessageUseCase) participantDeal(ctx context.Context, p *entity.Principal, dealID string) (*entity.Deal, error) {
	deal, err := uc.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !canAccess(deal, p) {
		return nil, errors.Forbidden("You are not a participant of this deal", nil)
	}
	return deal, nil
}
