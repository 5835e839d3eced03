package service

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/iliyamo/weather-todo/internal/auth"
	"github.com/iliyamo/weather-todo/internal/guard"
	"github.com/iliyamo/weather-todo/internal/model"
	"github.com/iliyamo/weather-todo/internal/paging"
	"github.com/iliyamo/weather-todo/internal/query"
	"github.com/iliyamo/weather-todo/internal/queue"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
	"github.com/iliyamo/weather-todo/pkg/validator"
)

// TodoStore is implemented by repository.TodoRepo and
// repository.MemoryTodoStore.
type TodoStore interface {
	Save(ctx context.Context, d model.TodoDraft) (model.Todo, error)
	FindByID(ctx context.Context, id int64) (model.Todo, error)
	paging.Snapshotter[model.Todo]
}

type WeatherSource interface {
	TodayWeather(ctx context.Context) (string, error)
}

type EventPublisher interface {
	PublishTodoCreated(ctx context.Context, ev queue.TodoCreatedEvent) error
}

const publishTimeout = 3 * time.Second

type TodoService struct {
	store     TodoStore
	weather   WeatherSource
	events    EventPublisher
	validator *validator.Validator
	logger    *log.Logger
}

// NewTodoService wires the todo use cases.  events may be nil.
func NewTodoService(store TodoStore, weather WeatherSource, events EventPublisher, logger *log.Logger) *TodoService {
	if logger == nil {
		logger = log.Default()
	}
	return &TodoService{
		store:     store,
		weather:   weather,
		events:    events,
		validator: validator.New(),
		logger:    logger,
	}
}

// Create stores a todo owned by the caller and stamped with today's weather.
func (s *TodoService) Create(ctx context.Context, id auth.Identity, title, contents string) (model.Todo, error) {
	if id.SubjectID <= 0 {
		return model.Todo{}, apperrors.ErrUnauthorized
	}
	title = s.validator.SanitizeString(title)
	if err := s.validator.ValidateTodoTitle(title); err != nil {
		return model.Todo{}, err
	}
	if err := s.validator.ValidateTodoContents(contents); err != nil {
		return model.Todo{}, err
	}

	weather, err := s.weather.TodayWeather(ctx)
	if err != nil {
		s.logger.Error("weather lookup failed", "err", err)
		return model.Todo{}, err
	}

	td, err := s.store.Save(ctx, model.TodoDraft{
		Title:    title,
		Contents: contents,
		Weather:  weather,
		OwnerID:  id.SubjectID,
	})
	if err != nil {
		return model.Todo{}, err
	}
	td.OwnerEmail = id.Email
	s.logger.Debug("todo created", "todo_id", td.ID, "user_id", id.SubjectID, "weather", weather)

	s.publishCreated(ctx, td)
	return td, nil
}

func (s *TodoService) publishCreated(ctx context.Context, td model.Todo) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := s.events.PublishTodoCreated(pctx, queue.TodoCreatedEvent{
		TodoID:    td.ID,
		UserID:    td.OwnerID,
		Email:     td.OwnerEmail,
		Title:     td.Title,
		Weather:   td.Weather,
		CreatedAt: td.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Warn("todo.created not published", "todo_id", td.ID, "err", err)
	}
}

// Get returns one of the caller's todos.  A todo owned by someone else
// produces the same ErrRecordNotFound as a missing id.
func (s *TodoService) Get(ctx context.Context, id auth.Identity, todoID int64) (model.Todo, error) {
	td, err := s.store.FindByID(ctx, todoID)
	if err != nil {
		return model.Todo{}, err
	}
	if err := guard.AssertOwnership(id, td); err != nil {
		s.logger.Debug("todo access denied", "todo_id", todoID, "user_id", id.SubjectID)
		return model.Todo{}, err
	}
	return td, nil
}

// List pages through all of the caller's todos, newest modification first.
func (s *TodoService) List(ctx context.Context, id auth.Identity, req paging.Request) (paging.Page[model.Todo], error) {
	return s.Search(ctx, id, query.Filter{}, req)
}

// Search narrows the caller's todos by the optional filters.
func (s *TodoService) Search(ctx context.Context, id auth.Identity, f query.Filter, req paging.Request) (paging.Page[model.Todo], error) {
	if id.SubjectID <= 0 {
		return paging.Page[model.Todo]{}, apperrors.ErrUnauthorized
	}
	pred := query.Compose(guard.ScopeToOwner(id.SubjectID), f)
	return paging.Fetch[model.Todo](ctx, s.store, pred, req)
}
