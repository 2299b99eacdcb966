package handler

import (
	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/middleware"
	"dealroom/internal/usecase"
	"dealroom/pkg/response"
	"dealroom/pkg/utils"
)

type NotificationHandler struct {
	notificationUseCase *usecase.NotificationUseCase
}

func NewNotificationHandler(notificationUseCase *usecase.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
	}
}

func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	pagination := utils.GetPaginationParams(c)
	notifications, total, err := h.notificationUseCase.List(c.Request().Context(), principal.ID, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, notifications, total, pagination.Page, pagination.PageSize)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.notificationUseCase.MarkRead(c.Request().Context(), principal.ID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.notificationUseCase.MarkAllRead(c.Request().Context(), principal.ID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "All notifications marked as read"})
}

func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.notificationUseCase.Delete(c.Request().Context(), principal.ID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.NoContent(c)
}
