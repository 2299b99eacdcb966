package repository

import (
	"context"

	"dealroom/internal/domain/entity"
)

// ListingRepository is read-only here; listings are managed elsewhere.
type ListingRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
}
