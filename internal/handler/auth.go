package handler

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/weather-todo/internal/middleware"
	"github.com/iliyamo/weather-todo/internal/service"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth   *service.AuthService
	Logger *log.Logger
}

func NewAuthHandler(a *service.AuthService, logger *log.Logger) *AuthHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthHandler{Auth: a, Logger: logger}
}

// ----- DTOs -----

type signupReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	UserRole string `json:"userRole"`
}

type signinReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	BearerToken string    `json:"bearerToken"`
	Nickname    string    `json:"nickname"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type meResp struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	UserRole string `json:"userRole"`
}

// Signup creates the account and returns a token immediately.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apperrors.NewBody(http.StatusBadRequest, "invalid body"))
	}
	sess, err := h.Auth.Signup(c.Request().Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Nickname: req.Nickname,
		UserRole: req.UserRole,
	})
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, authResp{
		BearerToken: sess.Token.Bearer,
		Nickname:    sess.User.Nickname,
		ExpiresAt:   sess.Token.ExpiresAt,
	})
}

// Signin verifies credentials and returns a fresh token.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apperrors.NewBody(http.StatusBadRequest, "invalid body"))
	}
	sess, err := h.Auth.Signin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, authResp{
		BearerToken: sess.Token.Bearer,
		Nickname:    sess.User.Nickname,
		ExpiresAt:   sess.Token.ExpiresAt,
	})
}

// Me echoes the identity decoded from the caller's token.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, h.Logger, apperrors.ErrUnauthorized)
	}
	return c.JSON(http.StatusOK, meResp{
		ID:       id.SubjectID,
		Email:    id.Email,
		Nickname: id.Nickname,
		UserRole: id.Role.String(),
	})
}
