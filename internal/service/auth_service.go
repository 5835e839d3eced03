package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/iliyamo/weather-todo/internal/auth"
	"github.com/iliyamo/weather-todo/internal/model"
	"github.com/iliyamo/weather-todo/internal/utils"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
	"github.com/iliyamo/weather-todo/pkg/validator"
)

// UserStore is implemented by repository.UserRepo and
// repository.MemoryUserStore.
type UserStore interface {
	Create(ctx context.Context, d model.UserDraft) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type AuthService struct {
	users      UserStore
	issuer     *auth.Issuer
	validator  *validator.Validator
	bcryptCost int
	logger     *log.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(users UserStore, issuer *auth.Issuer, bcryptCost int, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthService{
		users:      users,
		issuer:     issuer,
		validator:  validator.New(),
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

type SignupInput struct {
	Email    string
	Password string
	Nickname string
	UserRole string
}

// Session is what a successful signup or signin hands back.
type Session struct {
	Token auth.Token
	User  model.User
}

// Signup registers a new user and issues a token for them.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (Session, error) {
	email := s.validator.SanitizeString(in.Email)
	nickname := s.validator.SanitizeString(in.Nickname)

	if err := s.validator.ValidateEmail(email); err != nil {
		return Session{}, err
	}
	if err := s.validator.ValidatePassword(in.Password); err != nil {
		return Session{}, err
	}
	if err := s.validator.ValidateNickname(nickname); err != nil {
		return Session{}, err
	}

	role := model.RoleUser
	if r := s.validator.SanitizeString(in.UserRole); r != "" {
		parsed, err := model.ParseRole(r)
		if err != nil {
			return Session{}, apperrors.Invalid("unknown userRole " + r)
		}
		role = parsed
	}

	// Skips the bcrypt round for a known email.  Create still enforces
	// uniqueness for concurrent signups.
	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if taken {
		s.logger.Warn("signup rejected: duplicate email", "email", email)
		return Session{}, apperrors.ErrUserAlreadyExists
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return Session{}, err
	}

	u, err := s.users.Create(ctx, model.UserDraft{
		Email:        email,
		PasswordHash: hash,
		Nickname:     nickname,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			s.logger.Warn("signup rejected: duplicate email", "email", email)
		}
		return Session{}, err
	}

	tok, err := s.issuer.Issue(u.ID, u.Email, u.Nickname, u.Role)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("user signed up", "user_id", u.ID, "role", u.Role)
	return Session{Token: tok, User: u}, nil
}

// Signin verifies the password and issues a fresh token.  Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Signin(ctx context.Context, email, password string) (Session, error) {
	email = s.validator.SanitizeString(email)
	if email == "" || password == "" {
		return Session{}, apperrors.Invalid("email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrRecordNotFound) {
			return Session{}, apperrors.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		s.logger.Warn("signin rejected: bad password", "user_id", u.ID)
		return Session{}, apperrors.ErrInvalidCredentials
	}

	tok, err := s.issuer.Issue(u.ID, u.Email, u.Nickname, u.Role)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: tok, User: u}, nil
}
