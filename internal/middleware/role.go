package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/weather-todo/internal/model"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

// RequireRole rejects callers whose role is not in roles with 403.  It must
// run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok || !allowed[id.Role] {
				return c.JSON(http.StatusForbidden, apperrors.NewBody(http.StatusForbidden, "forbidden"))
			}
			return next(c)
		}
	}
}
