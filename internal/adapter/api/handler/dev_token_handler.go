package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"dealroom/internal/domain/entity"
	"dealroom/internal/infrastructure/auth"
	"dealroom/internal/usecase"
	"dealroom/pkg/errors"
	"dealroom/pkg/response"
)

// DevTokenHandler mints HS256 tokens for local development. It is only
// routed when the server runs in development with the jwt provider.
type DevTokenHandler struct {
	issuer      *auth.HMACVerifier
	userUseCase *usecase.UserUseCase
}

func NewDevTokenHandler(issuer *auth.HMACVerifier, userUseCase *usecase.UserUseCase) *DevTokenHandler {
	return &DevTokenHandler{
		issuer:      issuer,
		userUseCase: userUseCase,
	}
}

type devTokenRequest struct {
	UserID string `json:"userId" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
	Role   string `json:"role" validate:"required,oneof=buyer seller admin"`
	Admin  bool   `json:"admin"`
}

// GenerateToken registers the user if needed and returns a signed token.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	user, err := h.userUseCase.Register(c.Request().Context(), usecase.RegisterInput{
		ID:    req.UserID,
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		return response.Error(c, err)
	}

	token, expiresAt, err := h.issuer.Issue(user.ID, req.Admin || user.Role == entity.RoleAdmin)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to sign token", err))
	}

	return response.Success(c, map[string]interface{}{
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		"user":      user,
	})
}
