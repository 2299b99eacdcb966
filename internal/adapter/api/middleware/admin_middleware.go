package middleware

import (
	"github.com/labstack/echo/v4"

	"dealroom/pkg/errors"
	"dealroom/pkg/response"
)

type AdminMiddleware struct{}

func NewAdminMiddleware() *AdminMiddleware {
	return &AdminMiddleware{}
}

// AdminOnly must run after AuthMiddleware.Authenticate.
func (m *AdminMiddleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := Principal(c)
		if err != nil {
			return response.Error(c, err)
		}

		if !principal.IsAdmin() {
			return response.Error(c, errors.Forbidden("Admin privileges required", nil))
		}

		return next(c)
	}
}
