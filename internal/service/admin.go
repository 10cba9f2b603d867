package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/repository"
)

// AdminService exposes maintenance operations guarded by a shared secret.
type AdminService struct {
	store  repository.Store
	secret string
	logger *slog.Logger
}

// NewAdminService creates an AdminService that accepts secret.
func NewAdminService(store repository.Store, secret string, logger *slog.Logger) *AdminService {
	return &AdminService{store: store, secret: secret, logger: logger}
}

// AdminDeletion is the outcome of DeleteUserByUsername.
type AdminDeletion struct {
	UserID string
	Counts model.DeletionCounts
}

// DeleteUserByUsername removes the user matching username
// (case-insensitively) and everything they own.
//
// AUTHORIZATION:
// The secret is compared with subtle.ConstantTimeCompare so the response
// time does not leak how many leading bytes matched. An empty configured
// secret disables the endpoint entirely.
func (s *AdminService) DeleteUserByUsername(ctx context.Context, secret, username string) (*AdminDeletion, error) {
	if s.secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.secret)) != 1 {
		return nil, apperror.Unauthorized("Unauthorized")
	}

	var out AdminDeletion
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		user, err := tx.GetUserByUsernameFold(ctx, username)
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMessage(fmt.Sprintf("User %q not found", username))
		}
		if err != nil {
			return err
		}

		out.UserID = user.ID
		out.Counts, err = tx.DeleteUserCascade(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service/admin: deleting %q: %w", username, err)
	}

	s.logger.Warn("user deleted by admin",
		slog.String("username", username),
		slog.String("userID", out.UserID),
	)
	return &out, nil
}
