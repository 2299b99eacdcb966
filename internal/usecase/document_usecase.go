package usecase

import (
	"context"
	"fmt"
	"io"

	"dealroom/internal/domain/entity"
	"dealroom/internal/domain/repository"
	"dealroom/internal/domain/service"
	ws "dealroom/internal/infrastructure/websocket"
	"dealroom/pkg/errors"
	"dealroom/pkg/logger"
)

type DocumentUseCase struct {
	documentRepo  repository.DocumentRepository
	dealRepo      repository.DealRepository
	files         service.FileUploadService
	notifications *NotificationUseCase
	broadcaster   Broadcaster
	maxSize       int64
}

// NewDocumentUseCase accepts a nil file service; uploads are then refused.
func NewDocumentUseCase(
	documentRepo repository.DocumentRepository,
	dealRepo repository.DealRepository,
	files service.FileUploadService,
	notifications *NotificationUseCase,
	broadcaster Broadcaster,
	maxSize int64,
) *DocumentUseCase {
	return &DocumentUseCase{
		documentRepo:  documentRepo,
		dealRepo:      dealRepo,
		files:         files,
		notifications: notifications,
		broadcaster:   broadcaster,
		maxSize:       maxSize,
	}
}

type UploadDocumentInput struct {
	File        io.Reader
	Name        string
	ContentType string
	Size        int64
}

// DocumentDeleted is the payload of a document_deleted event.
type DocumentDeleted struct {
	DocumentID string `json:"documentId"`
	DealID     string `json:"dealId"`
}

func (uc *DocumentUseCase) Upload(ctx context.Context, p *entity.Principal, dealID string, input UploadDocumentInput) (*entity.Document, error) {
	if uc.files == nil {
		return nil, errors.BadRequest("Document storage is not configured", nil)
	}
	if input.Name == "" {
		return nil, errors.BadRequest("File name is required", nil)
	}
	if uc.maxSize > 0 && input.Size > uc.maxSize {
		return nil, errors.BadRequest(fmt.Sprintf("File exceeds the %d byte limit", uc.maxSize), nil)
	}

	deal, err := uc.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !canAccess(deal, p) {
		return nil, errors.Forbidden("You are not a participant of this deal", nil)
	}

	uploaded, err := uc.files.UploadFile(ctx, input.File, input.ContentType, input.Name, "deals/"+dealID)
	if err != nil {
		return nil, errors.Internal("Failed to upload document", err)
	}

	document := &entity.Document{
		DealID:      dealID,
		UploaderID:  p.ID,
		Name:        input.Name,
		URL:         uploaded.URL,
		ObjectName:  uploaded.ObjectName,
		ContentType: input.ContentType,
		Size:        uploaded.Size,
	}
	if err := uc.documentRepo.Create(ctx, document); err != nil {
		if delErr := uc.files.DeleteFile(ctx, uploaded.ObjectName); delErr != nil {
			logger.Error("Failed to roll back upload %s: %v", uploaded.ObjectName, delErr)
		}
		return nil, err
	}

	uc.notifications.NotifyMany(ctx, deal.CounterParties(p.ID), entity.NotificationDocument,
		fmt.Sprintf("%s shared %s on \"%s\"", p.Name, document.Name, deal.Title), dealID)
	uc.broadcaster.BroadcastToDeal(dealID, ws.EventNewDocument, document)

	return document, nil
}

func (uc *DocumentUseCase) List(ctx context.Context, p *entity.Principal, dealID string) ([]*entity.Document, error) {
	deal, err := uc.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !canAccess(deal, p) {
		return nil, errors.Forbidden("You are not a participant of this deal", nil)
	}
	return uc.documentRepo.ListByDeal(ctx, dealID)
}

// Delete is allowed for the uploader and admins.
func (uc *DocumentUseCase) Delete(ctx context.Context, p *entity.Principal, documentID string) error {
	document, err := uc.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if document.UploaderID != p.ID && !p.IsAdmin() {
		return errors.Forbidden("Only the uploader can delete this document", nil)
	}

	if err := uc.documentRepo.Delete(ctx, documentID); err != nil {
		return err
	}
	uc.deleteObject(ctx, document)

	uc.broadcaster.BroadcastToDeal(document.DealID, ws.EventDocumentDeleted, DocumentDeleted{
		DocumentID: document.ID,
		DealID:     document.DealID,
	})
	return nil
}

func (uc *DocumentUseCase) DeleteForDeal(ctx context.Context, dealID string) error {
	documents, err := uc.documentRepo.ListByDeal(ctx, dealID)
	if err != nil {
		return err
	}
	for _, document := range documents {
		uc.deleteObject(ctx, document)
	}
	return uc.documentRepo.DeleteByDeal(ctx, dealID)
}

func (uc *DocumentUseCase) deleteObject(ctx context.Context, document *entity.Document) {
	if uc.files == nil || document.ObjectName == "" {
		return
	}
	if err := uc.files.DeleteFile(ctx, document.ObjectName); err != nil {
		logger.Error("Failed to delete stored file %s: %v", document.ObjectName, err)
	}
}
