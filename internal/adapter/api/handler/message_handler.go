package handler

import (
	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/middleware"
	"dealroom/internal/usecase"
	"dealroom/pkg/errors"
	"dealroom/pkg/response"
	"dealroom/pkg/utils"
)

type MessageHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
	}
}

type sendMessageRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

func (h *MessageHandler) SendMessage(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.messageUseCase.Send(c.Request().Context(), principal, c.Param("id"), req.Message)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// GetHistory returns the cached history, oldest first.
func (h *MessageHandler) GetHistory(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.messageUseCase.History(c.Request().Context(), principal, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

// GetPage reads one page of history from the store.
func (h *MessageHandler) GetPage(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	pagination := utils.GetPaginationParams(c)
	messages, total, err := h.messageUseCase.Page(c.Request().Context(), principal, c.Param("id"), pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, pagination.Page, pagination.PageSize)
}

func (h *MessageHandler) MarkRead(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	message, err := h.messageUseCase.MarkRead(c.Request().Context(), principal, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}
