package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/weather-todo/internal/database"
	"github.com/iliyamo/weather-todo/internal/model"
	"github.com/iliyamo/weather-todo/internal/paging"
	"github.com/iliyamo/weather-todo/internal/query"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

const todoSelect = `SELECT
		t.id,
		t.title,
		t.contents,
		t.weather,
		t.user_id,
		u.email,
		t.created_at,
		t.modified_at
	FROM todos t
	JOIN users u ON u.id = t.user_id`

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TodoRepo stores todos in MySQL.
type TodoRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewTodoRepo(db *sql.DB) *TodoRepo { return &TodoRepo{db: db, now: time.Now} }

// Save inserts a draft and returns the stored todo.  OwnerEmail is left empty;
// the caller already knows it.
func (r *TodoRepo) Save(ctx context.Context, d model.TodoDraft) (model.Todo, error) {
	// DATETIME(6) keeps microseconds
	now := r.now().UTC().Truncate(time.Microsecond)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO todos (user_id, title, contents, weather, created_at, modified_at) VALUES (?,?,?,?,?,?)",
		d.OwnerID, d.Title, d.Contents, d.Weather, now, now)
	if err != nil {
		return model.Todo{}, apperrors.Store("insert todo", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Todo{}, apperrors.Store("insert todo id", err)
	}
	return model.Todo{
		ID:         id,
		Title:      d.Title,
		Contents:   d.Contents,
		Weather:    d.Weather,
		OwnerID:    d.OwnerID,
		CreatedAt:  now,
		ModifiedAt: now,
	}, nil
}

// FindByID returns the todo with its owner's email, or ErrRecordNotFound.
func (r *TodoRepo) FindByID(ctx context.Context, id int64) (model.Todo, error) {
	row := r.db.QueryRowContext(ctx, todoSelect+" WHERE t.id = ? LIMIT 1", id)
	var td model.Todo
	if err := scanTodo(row, &td); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Todo{}, fmt.Errorf("todo %d: %w", id, apperrors.ErrRecordNotFound)
		}
		return model.Todo{}, apperrors.Store("select todo", err)
	}
	return td, nil
}

// WithSnapshot runs fn inside one read-only transaction so the page slice
// and the count see the same rows.
func (r *TodoRepo) WithSnapshot(ctx context.Context, fn func(paging.Reader[model.Todo]) error) error {
	return database.ReadSnapshot(ctx, r.db, func(tx *sql.Tx) error {
		return fn(todoReader{q: tx})
	})
}

// QueryPage and CountMatching outside a snapshot run on the pool directly.
func (r *TodoRepo) QueryPage(ctx context.Context, pred query.Predicate, offset, limit int) ([]model.Todo, error) {
	return todoReader{q: r.db}.QueryPage(ctx, pred, offset, limit)
}

func (r *TodoRepo) CountMatching(ctx context.Context, pred query.Predicate) (int64, error) {
	return todoReader{q: r.db}.CountMatching(ctx, pred)
}

type todoReader struct{ q queryer }

func (tr todoReader) QueryPage(ctx context.Context, pred query.Predicate, offset, limit int) ([]model.Todo, error) {
	cond, args, err := pred.SQL("t")
	if err != nil {
		return nil, err
	}
	dataSQL := todoSelect + `
	WHERE ` + cond + `
	ORDER BY t.modified_at DESC, t.id DESC
	LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := tr.q.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, apperrors.Store("query todos", err)
	}
	defer rows.Close()

	out := make([]model.Todo, 0, limit)
	for rows.Next() {
		var td model.Todo
		if err := scanTodo(rows, &td); err != nil {
			return nil, apperrors.Store("scan todo", err)
		}
		out = append(out, td)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("iterate todos", err)
	}
	return out, nil
}

func (tr todoReader) CountMatching(ctx context.Context, pred query.Predicate) (int64, error) {
	cond, args, err := pred.SQL("t")
	if err != nil {
		return 0, err
	}
	var total int64
	countSQL := `SELECT COUNT(*) FROM todos t WHERE ` + cond
	if err := tr.q.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return 0, apperrors.Store("count todos", err)
	}
	return total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(s scanner, td *model.Todo) error {
	return s.Scan(
		&td.ID,
		&td.Title,
		&td.Contents,
		&td.Weather,
		&td.OwnerID,
		&td.OwnerEmail,
		&td.CreatedAt,
		&td.ModifiedAt,
	)
}
