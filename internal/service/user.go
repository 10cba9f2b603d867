package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/repository"
)

// UserService manages user records outside of authentication: direct
// creation, lookups and profile edits.
type UserService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(store repository.Store, logger *slog.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Bio      *string `json:"bio"`
	Gender   *string `json:"gender"`
}

// CreateUser inserts a passwordless user. Uniqueness is left to the
// store's unique indexes, which surface as a 409.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	if username == "" || email == "" {
		return nil, apperror.ValidationFailed("username", "Missing required fields: username, email")
	}

	user := &model.User{
		Username: username,
		Email:    email,
		Bio:      req.Bio,
		Gender:   req.Gender,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: creating %s: %w", username, err)
	}

	s.logger.Info("user created", slog.String("userID", user.ID))
	return user, nil
}

// GetUser returns a user by ID, or a NotFound error.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: getting %s: %w", id, err)
	}
	return user, nil
}
