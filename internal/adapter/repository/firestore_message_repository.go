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

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := r.client.Collection(messagesCollection).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}

	return nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	doc, err := r.client.Collection(messagesCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreMessageRepository) ListByDeal(ctx context.Context, dealID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection(messagesCollection).Where("dealId", "==", dealID)

	total, err := countQuery(ctx, query)
	if err != nil {
		logger.Error("Firestore error while counting messages for deal %s: %v", dealID, err)
		return nil, 0, errors.Internal("Failed to count messages for deal", err)
	}

	query = query.OrderBy("createdAt", firestore.Asc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	messages, err := decodeAll[entity.Message](query.Documents(ctx))
	if err != nil {
		logger.Error("Firestore error while listing messages for deal %s: %v", dealID, err)
		return nil, 0, errors.Internal("Failed to list messages", err)
	}

	return messages, total, nil
}

// MarkRead is idempotent: an already read message is returned unchanged.
func (r *firestoreMessageRepository) MarkRead(ctx context.Context, id string) (*entity.Message, error) {
	ref := r.client.Collection(messagesCollection).Doc(id)

	var message entity.Message
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if err := doc.DataTo(&message); err != nil {
			return err
		}
		if message.Read {
			return nil
		}

		message.Read = true
		return tx.Update(ref, []firestore.Update{{Path: "read", Value: true}})
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to mark message as read", err)
	}

	return &message, nil
}

func (r *firestoreMessageRepository) DeleteByDeal(ctx context.Context, dealID string) error {
	query := r.client.Collection(messagesCollection).Where("dealId", "==", dealID)
	if err := deleteWhere(ctx, r.client, query); err != nil {
		return errors.Internal("Failed to delete deal messages", err)
	}
	return nil
}
