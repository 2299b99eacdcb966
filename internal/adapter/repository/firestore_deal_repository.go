package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"dealroom/internal/domain/entity"
	"dealroom/internal/domain/repository"
	"dealroom/pkg/errors"
	"dealroom/pkg/logger"
)

type firestoreDealRepository struct {
	client *firestore.Client
}

func NewFirestoreDealRepository(client *firestore.Client) repository.DealRepository {
	return &firestoreDealRepository{
		client: client,
	}
}

func (r *firestoreDealRepository) Create(ctx context.Context, deal *entity.Deal) error {
	if deal.ID == "" {
		deal.ID = uuid.New().String()
	}

	now := time.Now()
	deal.CreatedAt = now
	deal.UpdatedAt = now

	_, err := r.client.Collection(dealsCollection).Doc(deal.ID).Create(ctx, deal)
	if err != nil {
		return errors.Internal("Failed to create deal", err)
	}

	return nil
}

func (r *firestoreDealRepository) GetByID(ctx context.Context, id string) (*entity.Deal, error) {
	doc, err := r.client.Collection(dealsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Deal", err)
		}
		return nil, errors.Internal("Failed to get deal", err)
	}

	var deal entity.Deal
	if err := doc.DataTo(&deal); err != nil {
		return nil, errors.Internal("Failed to parse deal data", err)
	}

	return &deal, nil
}

func (r *firestoreDealRepository) List(ctx context.Context, filter repository.DealFilter, limit, offset int) ([]*entity.Deal, int64, error) {
	query := r.client.Collection(dealsCollection).Query

	if filter.ParticipantID != "" {
		query = query.Where("participants", "array-contains", filter.ParticipantID)
	}
	if filter.OpenOnly {
		query = query.Where("status", "==", string(entity.DealPending)).Where("seller", "==", nil)
	} else if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}

	total, err := countQuery(ctx, query)
	if err != nil {
		logger.Error("Firestore error while counting deals: %v", err)
		return nil, 0, errors.Internal("Failed to count deals", err)
	}

	query = query.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	deals, err := decodeAll[entity.Deal](query.Documents(ctx))
	if err != nil {
		return nil, 0, errors.Internal("Failed to list deals", err)
	}

	return deals, total, nil
}

func (r *firestoreDealRepository) Mutate(ctx context.Context, id string, fn repository.MutateFunc) (*entity.Deal, error) {
	ref := r.client.Collection(dealsCollection).Doc(id)

	var updated *entity.Deal
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var deal entity.Deal
		if err := doc.DataTo(&deal); err != nil {
			return err
		}

		if err := fn(&deal); err != nil {
			return err
		}
		deal.UpdatedAt = time.Now()
		updated = &deal

		return tx.Set(ref, &deal)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Deal", err)
		}
		return nil, errors.Wrap(err, "Failed to update deal")
	}

	return updated, nil
}

func (r *firestoreDealRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection(dealsCollection).Doc(id).Delete(ctx)
	if err != nil {
		return errors.Internal("Failed to delete deal", err)
	}
	return nil
}
