package repository

import (
	"context"

	"dealroom/internal/domain/entity"
)

type DealFilter struct {
	// ParticipantID restricts results to deals where the user is buyer or seller.
	ParticipantID string
	Status        entity.DealStatus
	// OpenOnly restricts results to pending deals without a seller.
	OpenOnly bool
}

// MutateFunc edits a freshly read deal. Returning an error aborts the write.
type MutateFunc func(deal *entity.Deal) error

type DealRepository interface {
	Create(ctx context.Context, deal *entity.Deal) error
	GetByID(ctx context.Context, id string) (*entity.Deal, error)
	List(ctx context.Context, filter DealFilter, limit, offset int) ([]*entity.Deal, int64, error)
	// Mutate reads, applies fn and writes the deal atomically. Concurrent
	// callers on the same deal observe each other's writes.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*entity.Deal, error)
	Delete(ctx context.Context, id string) error
}
