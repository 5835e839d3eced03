package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/weather-todo/internal/model"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

const userColumns = "id,email,password_hash,nickname,role,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts the user and returns the stored row.
func (r *UserRepo) Create(ctx context.Context, d model.UserDraft) (model.User, error) {
	d.Email = normalizeEmail(d.Email)
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, nickname, role, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		d.Email, d.PasswordHash, d.Nickname, string(d.Role), now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, apperrors.ErrUserAlreadyExists
		}
		return model.User{}, apperrors.Store("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, apperrors.Store("insert user id", err)
	}
	return model.User{
		ID:           id,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Nickname:     d.Nickname,
		Role:         d.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// ExistsByEmail reports whether the email is taken.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=?", normalizeEmail(email)).Scan(&n)
	if err != nil {
		return false, apperrors.Store("count users", err)
	}
	return n > 0, nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, apperrors.ErrRecordNotFound
		}
		return model.User{}, apperrors.Store("select user", err)
	}
	u.Role = model.Role(role)
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
