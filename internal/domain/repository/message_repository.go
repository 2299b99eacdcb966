package repository

import (
	"context"

	"dealroom/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	GetByID(ctx context.Context, id string) (*entity.Message, error)
	// ListByDeal returns messages oldest-first. A limit of zero returns all.
	ListByDeal(ctx context.Context, dealID string, limit, offset int) ([]*entity.Message, int64, error)
	MarkRead(ctx context.Context, id string) (*entity.Message, error)
	DeleteByDeal(ctx context.Context, dealID string) error
}
