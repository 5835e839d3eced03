package middleware

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/weather-todo/internal/auth"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

// JWTAuth validates the Authorization header and stores the decoded
// identity for downstream handlers.  Every failure kind gets the same 401
// body; the kind is only logged.
func JWTAuth(issuer *auth.Issuer, logger *log.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := issuer.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				logger.Warn("request not authenticated",
					"kind", auth.Kind(err),
					"path", c.Path(),
					"ip", c.RealIP())
				return c.JSON(http.StatusUnauthorized,
					apperrors.NewBody(http.StatusUnauthorized, apperrors.ErrUnauthorized.Error()))
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}
