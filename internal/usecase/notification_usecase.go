package usecase

import (
	"context"

	"dealroom/internal/domain/entity"
	"dealroom/internal/domain/repository"
	ws "dealroom/internal/infrastructure/websocket"
	"dealroom/pkg/errors"
	"dealroom/pkg/logger"
)

type NotificationUseCase struct {
	notificationRepo repository.NotificationRepository
	broadcaster      Broadcaster
}

func NewNotificationUseCase(notificationRepo repository.NotificationRepository, broadcaster Broadcaster) *NotificationUseCase {
	return &NotificationUseCase{
		notificationRepo: notificationRepo,
		broadcaster:      broadcaster,
	}
}

// Notify persists the notification, then pushes it to the recipient's
// connections.
func (uc *NotificationUseCase) Notify(ctx context.Context, recipientID string, notificationType entity.NotificationType, content, dealID string) (*entity.Notification, error) {
	notification := &entity.Notification{
		UserID:  recipientID,
		Type:    notificationType,
		Content: content,
		DealID:  dealID,
	}

	if err := uc.notificationRepo.Create(ctx, notification); err != nil {
		return nil, err
	}

	uc.broadcaster.SendToUser(recipientID, ws.EventNewNotification, notification)
	return notification, nil
}

// NotifyMany delivers to each recipient independently and returns how many
// notifications were persisted.
func (uc *NotificationUseCase) NotifyMany(ctx context.Context, recipients []string, notificationType entity.NotificationType, content, dealID string) int {
	delivered := 0
	for _, recipientID := range recipients {
		if _, err := uc.Notify(ctx, recipientID, notificationType, content, dealID); err != nil {
			logger.Error("Failed to notify user %s about deal %s: %v", recipientID, dealID, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (uc *NotificationUseCase) List(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, int64, error) {
	return uc.notificationRepo.ListByUser(ctx, userID, limit, offset)
}

func (uc *NotificationUseCase) MarkRead(ctx context.Context, userID, notificationID string) error {
	if _, err := uc.owned(ctx, userID, notificationID); err != nil {
		return err
	}
	return uc.notificationRepo.MarkRead(ctx, notificationID)
}

func (uc *NotificationUseCase) MarkAllRead(ctx context.Context, userID string) error {
	return uc.notificationRepo.MarkAllRead(ctx, userID)
}

func (uc *NotificationUseCase) Delete(ctx context.Context, userID, notificationID string) error {
	if _, err := uc.owned(ctx, userID, notificationID); err != nil {
		return err
	}
	return uc.notificationRepo.Delete(ctx, notificationID)
}

func (uc *NotificationUseCase) DeleteForDeal(ctx context.Context, dealID string) error {
	return uc.notificationRepo.DeleteByDeal(ctx, dealID)
}

func (uc *NotificationUseCase) owned(ctx context.Context, userID, notificationID string) (*entity.Notification, error) {
	notification, err := uc.notificationRepo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if notification.UserID != userID {
		return nil, errors.Forbidden("You can only manage your own notifications", nil)
	}
	return notification, nil
}
