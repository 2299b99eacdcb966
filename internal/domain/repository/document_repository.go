package repository

import (
	"context"

	"dealroom/internal/domain/entity"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	ListByDeal(ctx context.Context, dealID string) ([]*entity.Document, error)
	Delete(ctx context.Context, id string) error
	DeleteByDeal(ctx context.Context, dealID string) error
}
