package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"dealroom/internal/domain/entity"
	"dealroom/internal/domain/repository"
	"dealroom/pkg/errors"
)

type firestoreDocumentRepository struct {
	client *firestore.Client
}

func NewFirestoreDocumentRepository(client *firestore.Client) repository.DocumentRepository {
	return &firestoreDocumentRepository{
		client: client,
	}
}

func (r *firestoreDocumentRepository) Create(ctx context.Context, document *entity.Document) error {
	if document.ID == "" {
		document.ID = uuid.New().String()
	}
	document.CreatedAt = time.Now()

	_, err := r.client.Collection(documentsCollection).Doc(document.ID).Set(ctx, document)
	if err != nil {
		return errors.Internal("Failed to save document metadata", err)
	}
	return nil
}

func (r *firestoreDocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	doc, err := r.client.Collection(documentsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Document", err)
		}
		return nil, errors.Internal("Failed to get document", err)
	}

	var document entity.Document
	if err := doc.DataTo(&document); err != nil {
		return nil, errors.Internal("Failed to parse document data", err)
	}
	return &document, nil
}

func (r *firestoreDocumentRepository) ListByDeal(ctx context.Context, dealID string) ([]*entity.Document, error) {
	iter := r.client.Collection(documentsCollection).
		Where("dealId", "==", dealID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)

	documents, err := decodeAll[entity.Document](iter)
	if err != nil {
		return nil, errors.Internal("Failed to list documents", err)
	}
	return documents, nil
}

func (r *firestoreDocumentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection(documentsCollection).Doc(id).Delete(ctx)
	if err != nil {
		return errors.Internal("Failed to delete document", err)
	}
	return nil
}

func (r *firestoreDocumentRepository) DeleteByDeal(ctx context.Context, dealID string) error {
	query := r.client.Collection(documentsCollection).Where("dealId", "==", dealID)
	if err := deleteWhere(ctx, r.client, query); err != nil {
		return errors.Internal("Failed to delete deal documents", err)
	}
	return nil
}
