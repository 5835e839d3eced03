package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/weather-todo/internal/middleware"
	"github.com/iliyamo/weather-todo/internal/model"
	"github.com/iliyamo/weather-todo/internal/paging"
	"github.com/iliyamo/weather-todo/internal/query"
	"github.com/iliyamo/weather-todo/internal/service"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

// CacheInvalidator drops a user's cached responses after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

type TodoHandler struct {
	Todos  *service.TodoService
	Cache  CacheInvalidator // optional
	Logger *log.Logger
}

func NewTodoHandler(todos *service.TodoService, cache CacheInvalidator, logger *log.Logger) *TodoHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &TodoHandler{Todos: todos, Cache: cache, Logger: logger}
}

// ----- DTOs -----

type createTodoReq struct {
	Title    string `json:"title"`
	Contents string `json:"contents"`
}

type userPart struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type todoResp struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Contents   string    `json:"contents"`
	Weather    string    `json:"weather"`
	User       userPart  `json:"user"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

type pageResp struct {
	Content       []todoResp `json:"content"`
	TotalElements int64      `json:"totalElements"`
	Page          int        `json:"page"`
	Size          int        `json:"size"`
	TotalPages    int        `json:"totalPages"`
}

func toTodoResp(td model.Todo) todoResp {
	return todoResp{
		ID:         td.ID,
		Title:      td.Title,
		Contents:   td.Contents,
		Weather:    td.Weather,
		User:       userPart{ID: td.OwnerID, Email: td.OwnerEmail},
		CreatedAt:  td.CreatedAt,
		ModifiedAt: td.ModifiedAt,
	}
}

func toPageResp(p paging.Page[model.Todo]) pageResp {
	m := paging.Map(p, toTodoResp)
	return pageResp{
		Content:       m.Items,
		TotalElements: m.Total,
		Page:          m.Page,
		Size:          m.Size,
		TotalPages:    m.TotalPages(),
	}
}

// Create stores a todo for the caller.
func (h *TodoHandler) Create(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, h.Logger, apperrors.ErrUnauthorized)
	}
	var req createTodoReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apperrors.NewBody(http.StatusBadRequest, "invalid body"))
	}
	td, err := h.Todos.Create(c.Request().Context(), id, req.Title, req.Contents)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	if h.Cache != nil {
		if err := h.Cache.Invalidate(c.Request().Context(), id.SubjectID); err != nil {
			h.Logger.Warn("cache invalidation failed", "user_id", id.SubjectID, "err", err)
		}
	}
	return c.JSON(http.StatusCreated, toTodoResp(td))
}

// List returns the caller's todos, newest modification first.
func (h *TodoHandler) List(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, h.Logger, apperrors.ErrUnauthorized)
	}
	req, err := pageRequest(c)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	p, err := h.Todos.List(c.Request().Context(), id, req)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, toPageResp(p))
}

// Get returns one todo.  Missing and foreign ids both answer 404.
func (h *TodoHandler) Get(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, h.Logger, apperrors.ErrUnauthorized)
	}
	todoID, err := strconv.ParseInt(c.Param("todoId"), 10, 64)
	if err != nil || todoID < 1 {
		return writeError(c, h.Logger, apperrors.Invalid("todoId must be a positive integer"))
	}
	td, err := h.Todos.Get(c.Request().Context(), id, todoID)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, toTodoResp(td))
}

// Search filters by weather and a modified_at range.
//
//	GET /todos/search?weather=Sunny&startDate=2025-01-01&endDate=2025-01-31&page=1&size=10
func (h *TodoHandler) Search(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, h.Logger, apperrors.ErrUnauthorized)
	}
	req, err := pageRequest(c)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	start, err := parseBound(c.QueryParam("startDate"), false)
	if err != nil {
		return writeError(c, h.Logger, apperrors.Invalid("startDate: "+err.Error()))
	}
	end, err := parseBound(c.QueryParam("endDate"), true)
	if err != nil {
		return writeError(c, h.Logger, apperrors.Invalid("endDate: "+err.Error()))
	}

	f := query.Filter{Weather: c.QueryParam("weather"), Start: start, End: end}
	p, err := h.Todos.Search(c.Request().Context(), id, f, req)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, toPageResp(p))
}

// pageRequest reads page and size.  Absent values take the defaults,
// oversized pages are clamped, and anything below 1 is left for
// paging.Request.Validate to reject.
func pageRequest(c echo.Context) (paging.Request, error) {
	page, err := intParam(c, "page", paging.DefaultPage)
	if err != nil {
		return paging.Request{}, err
	}
	size, err := intParam(c, "size", paging.DefaultSize)
	if err != nil {
		return paging.Request{}, err
	}
	if size > paging.MaxSize {
		size = paging.MaxSize
	}
	return paging.Request{Page: page, Size: size}, nil
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Invalid(name + " must be an integer")
	}
	return n, nil
}

const (
	localDateTime = "2006-01-02T15:04:05"
	dateOnly      = "2006-01-02"
)

// parseBound accepts RFC 3339, a zone-less date-time (UTC) or a bare date.
// A bare date expands to the start of the day, or its last instant when
// end is set.
func parseBound(raw string, end bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, nil
	}
	if t, err := time.ParseInLocation(localDateTime, raw, time.UTC); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateOnly, raw, time.UTC)
	if err != nil {
		return nil, err
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
