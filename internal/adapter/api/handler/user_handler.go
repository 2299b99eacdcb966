package handler

import (
	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/middleware"
	"dealroom/internal/usecase"
	"dealroom/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

// GetMe returns the stored profile with the role the request runs under.
func (h *UserHandler) GetMe(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	user, err := h.userUseCase.GetByID(c.Request().Context(), principal.ID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"user":      user,
		"principal": principal,
	})
}
