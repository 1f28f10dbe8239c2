package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/repository"
)

// Service handles registration, login and token authentication.
type Service struct {
	users  repository.UserRepository
	tokens *Tokens
	logger *slog.Logger
}

// NewService creates a new auth service.
func NewService(users repository.UserRepository, tokens *Tokens, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// RegisterRequest represents account creation parameters.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest represents login parameters.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is what a successful register or login returns.
type Session struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

var errBadCredentials = common.NewAppError("INVALID_CREDENTIALS", "invalid email or password", common.ErrUnauthorized)

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, common.NewAppError("INTERNAL", "hash password", err)
	}
	u, err := s.users.Create(ctx, req.Name, req.Email, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", u.ID)
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, common.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, req.Password) {
		s.logger.Warn("login failed", "user_id", u.ID)
		return nil, errBadCredentials
	}
	return s.session(u)
}

// Authenticate verifies a bearer token and loads its user, who must still exist.
func (s *Service) Authenticate(ctx context.Context, raw string) (*entity.User, error) {
	id, err := s.tokens.Verify(raw)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, ErrTokenExpired) {
			msg = "token expired"
		}
		return nil, common.NewAppError("UNAUTHORIZED", msg, common.ErrUnauthorized)
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NewAppError("UNAUTHORIZED", "user not found", common.ErrUnauthorized)
	}
	return u, err
}

// UpdateProfileRequest changes the display name of the current user.
type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*entity.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	return s.users.UpdateName(ctx, userID, req.Name)
}

func (s *Service) session(u *entity.User) (*Session, error) {
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, common.NewAppError("INTERNAL", "issue token", err)
	}
	return &Session{Token: tok, User: u}, nil
}
