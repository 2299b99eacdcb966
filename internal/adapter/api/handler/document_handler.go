package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/middleware"
	"dealroom/internal/usecase"
	"dealroom/pkg/errors"
	"dealroom/pkg/logger"
	"dealroom/pkg/response"
)

type DocumentHandler struct {
	documentUseCase *usecase.DocumentUseCase
	maxFileSize     int64
}

func NewDocumentHandler(documentUseCase *usecase.DocumentUseCase, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{
		documentUseCase: documentUseCase,
		maxFileSize:     maxFileSize,
	}
}

// UploadDocument stores the multipart "file" field against the deal.
func (h *DocumentHandler) UploadDocument(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("Missing or invalid file", err))
	}

	if h.maxFileSize > 0 && file.Size > h.maxFileSize {
		logger.Warn("Document too large: %d bytes (max: %d)", file.Size, h.maxFileSize)
		return response.Error(c, errors.BadRequest(fmt.Sprintf("File size exceeds maximum allowed (%dMB)", h.maxFileSize/(1024*1024)), nil))
	}

	fileType := file.Header.Get("Content-Type")
	if !isAllowedFileType(fileType) {
		logger.Warn("Invalid document type: %s", fileType)
		return response.Error(c, errors.BadRequest("File type not supported", nil))
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Unable to read file", err))
	}
	defer src.Close()

	document, err := h.documentUseCase.Upload(c.Request().Context(), principal, c.Param("id"), usecase.UploadDocumentInput{
		File:        src,
		Name:        file.Filename,
		ContentType: fileType,
		Size:        file.Size,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, document)
}

func (h *DocumentHandler) ListDocuments(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	documents, err := h.documentUseCase.List(c.Request().Context(), principal, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, documents)
}

func (h *DocumentHandler) DeleteDocument(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.documentUseCase.Delete(c.Request().Context(), principal, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.NoContent(c)
}

func isAllowedFileType(fileType string) bool {
	allowedTypes := []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/gif",
		"application/pdf",
		"text/plain",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}

	for _, allowedType := range allowedTypes {
		if fileType == allowedType {
			return true
		}
	}

	return false
}
