package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

// writeError maps a service error onto a status code and the shared error
// body.  Unexpected errors are logged and reported without detail.
func writeError(c echo.Context, logger *log.Logger, err error) error {
	code, msg := classify(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
	}
	return c.JSON(code, apperrors.NewBody(code, msg))
}

func classify(err error) (int, string) {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr) && appErr.Code > 0 && appErr.Message != "":
		return appErr.Code, appErr.Message
	case errors.Is(err, apperrors.ErrInvalidPageRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest, apperrors.ErrInvalidInput.Error()
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, apperrors.ErrInvalidCredentials.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, apperrors.ErrUnauthorized.Error()
	case errors.Is(err, apperrors.ErrRecordNotFound):
		return http.StatusNotFound, "todo not found"
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		return http.StatusConflict, apperrors.ErrUserAlreadyExists.Error()
	case errors.Is(err, apperrors.ErrWeatherUnavailable):
		return http.StatusServiceUnavailable, apperrors.ErrWeatherUnavailable.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
