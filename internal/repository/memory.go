package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/weather-todo/internal/model"
	"github.com/iliyamo/weather-todo/internal/paging"
	"github.com/iliyamo/weather-todo/internal/query"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

// MemoryUserStore keeps users in process memory.  Used with
// STORE_DRIVER=memory and in tests.
type MemoryUserStore struct {
	mu     sync.RWMutex
	users  map[int64]model.User
	emails map[string]int64
	nextID int64
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:  make(map[int64]model.User),
		emails: make(map[string]int64),
	}
}

func (s *MemoryUserStore) Create(ctx context.Context, d model.UserDraft) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(d.Email)
	if _, exists := s.emails[email]; exists {
		return model.User{}, apperrors.ErrUserAlreadyExists
	}
	s.nextID++
	now := time.Now().UTC()
	u := model.User{
		ID:           s.nextID,
		Email:        email,
		PasswordHash: d.PasswordHash,
		Nickname:     d.Nickname,
		Role:         d.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	s.emails[email] = u.ID
	return u, nil
}

func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[normalizeEmail(email)]
	if !ok {
		return model.User{}, apperrors.ErrRecordNotFound
	}
	return s.users[id], nil
}

func (s *MemoryUserStore) GetByID(ctx context.Context, id int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, apperrors.ErrRecordNotFound
	}
	return u, nil
}

func (s *MemoryUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.emails[normalizeEmail(email)]
	return ok, nil
}

func (s *MemoryUserStore) email(id int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id].Email
}

// MemoryTodoStore keeps todos in insertion order.  Reads inside WithSnapshot
// hold the read lock for the whole callback.
type MemoryTodoStore struct {
	mu     sync.RWMutex
	todos  []model.Todo
	nextID int64
	users  *MemoryUserStore

	// Clock stamps created_at/modified_at; nil means time.Now.
	Clock func() time.Time
}

// NewMemoryTodoStore returns an empty store.  When users is non-nil the owner
// email is filled in on reads.
func NewMemoryTodoStore(users *MemoryUserStore) *MemoryTodoStore {
	return &MemoryTodoStore{users: users}
}

func (s *MemoryTodoStore) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *MemoryTodoStore) Save(ctx context.Context, d model.TodoDraft) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now()
	td := model.Todo{
		ID:         s.nextID,
		Title:      d.Title,
		Contents:   d.Contents,
		Weather:    d.Weather,
		OwnerID:    d.OwnerID,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	s.todos = append(s.todos, td)
	return td, nil
}

func (s *MemoryTodoStore) FindByID(ctx context.Context, id int64) (model.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, td := range s.todos {
		if td.ID == id {
			return s.withEmail(td), nil
		}
	}
	return model.Todo{}, fmt.Errorf("todo %d: %w", id, apperrors.ErrRecordNotFound)
}

func (s *MemoryTodoStore) WithSnapshot(ctx context.Context, fn func(paging.Reader[model.Todo]) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(memoryReader{s: s})
}

func (s *MemoryTodoStore) withEmail(td model.Todo) model.Todo {
	if s.users != nil {
		td.OwnerEmail = s.users.email(td.OwnerID)
	}
	return td
}

// memoryReader assumes the caller holds s.mu.
type memoryReader struct{ s *MemoryTodoStore }

func (r memoryReader) matching(pred query.Predicate) ([]model.Todo, error) {
	if !pred.Scoped() {
		return nil, query.ErrUnscoped
	}
	var out []model.Todo
	for _, td := range r.s.todos {
		if pred.Match(td) {
			out = append(out, td)
		}
	}
	// newest modification first; later inserts win ties
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ModifiedAt.Equal(out[j].ModifiedAt) {
			return out[i].ModifiedAt.After(out[j].ModifiedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r memoryReader) QueryPage(ctx context.Context, pred query.Predicate, offset, limit int) ([]model.Todo, error) {
	all, err := r.matching(pred)
	if err != nil {
		return nil, err
	}
	if offset < 0 || limit < 1 || offset >= len(all) {
		return []model.Todo{}, nil
	}
	end := offset + limit
	if end > len(all) || end < offset {
		end = len(all)
	}
	out := make([]model.Todo, 0, end-offset)
	for _, td := range all[offset:end] {
		out = append(out, r.s.withEmail(td))
	}
	return out, nil
}

func (r memoryReader) CountMatching(ctx context.Context, pred query.Predicate) (int64, error) {
	all, err := r.matching(pred)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}
