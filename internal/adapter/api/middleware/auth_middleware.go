package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"dealroom/internal/domain/entity"
	"dealroom/internal/usecase"
	"dealroom/pkg/errors"
	"dealroom/pkg/response"
)

const (
	principalKey = "principal"
	uidKey       = "uid"
)

type AuthMiddleware struct {
	authenticator *usecase.Authenticator
}

func NewAuthMiddleware(authenticator *usecase.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := m.authenticator.Authenticate(c.Request().Context(), Credential(c))
		if err != nil {
			return response.Error(c, err)
		}

		SetPrincipal(c, principal)
		return next(c)
	}
}

// Credential reads a bearer token from the Authorization header, falling
// back to the token query parameter browsers use for websocket upgrades.
func Credential(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.QueryParam("token")
}

// Principal returns the authenticated principal set by Authenticate.
func Principal(c echo.Context) (*entity.Principal, error) {
	principal, ok := c.Get(principalKey).(*entity.Principal)
	if !ok || principal == nil {
		return nil, errors.Unauthorized("Authentication required", nil)
	}
	return principal, nil
}

func SetPrincipal(c echo.Context, principal *entity.Principal) {
	c.Set(principalKey, principal)
	c.Set(uidKey, principal.ID)
}
