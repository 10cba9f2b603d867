// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services receive repository.Store (an interface), never a concrete
// database type. Every operation that writes more than one row runs inside
// Store.WithTx so it commits or rolls back as a unit.
//
// Services return apperror values for anything the client caused; the
// handler package turns those into HTTP status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/auth"
	"github.com/hopon/hopon-api/internal/metrics"
	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/repository"
)

// MinPasswordLength is the shortest password signup accepts.
const MinPasswordLength = 6

// Login methods recorded in metrics.
const (
	LoginPassword = "password"
	LoginSignup   = "signup"
	LoginGoogle   = "google"
	LoginDev      = "dev"
	LoginDemo     = "demo"
	LoginRefresh  = "refresh"
)

// AuthOptions carries the environment switches the auth flows depend on.
type AuthOptions struct {
	Production     bool
	DevGoogleLogin bool
}

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - store      repository.Store        → users, and cascades on account deletion
//   - tokens     *auth.TokenService      → issue/decode access and refresh JWTs
//   - passwords  *auth.PasswordService   → bcrypt hashing
//   - metrics    metrics.Recorder        → login counters
type AuthService struct {
	store     repository.Store
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	metrics   metrics.Recorder
	opts      AuthOptions
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	store repository.Store,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	rec metrics.Recorder,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthService{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		metrics:   rec,
		opts:      opts,
		logger:    logger,
	}
}

// AuthResult is returned by every operation that logs a user in.
// The handler puts AccessToken in the JSON body and RefreshToken in the
// HttpOnly refresh_token cookie.
type AuthResult struct {
	User               *model.User
	AccessToken        string
	RefreshToken       string
	NeedsUsernameSetup bool
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DemoLoginRequest is the body of POST /auth/demo-login.
type DemoLoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Signup creates a password account and logs it in.
//
// Emails are stored trimmed and lowercased; lookups rely on that.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	if email == "" {
		return nil, apperror.ValidationFailed("email", "Email is required")
	}
	if len(req.Password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if username == "" {
		return nil, apperror.ValidationFailed("username", "Username is required")
	}
	if !validEmail(email) {
		return nil, apperror.ValidationFailed("email", "Invalid email format")
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "Password must be at most 72 bytes")
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Username: username, Email: email, PasswordHash: &hash}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetUserByEmail(ctx, email); err == nil {
			return apperror.Conflict("Email already in use")
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}

		taken, err := tx.UsernameExists(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return apperror.Conflict("Username already taken")
		}

		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: signing up %s: %w", email, err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	result, err := s.issue(user, LoginSignup)
	if err != nil {
		return nil, err
	}
	result.NeedsUsernameSetup = true
	return result, nil
}

// Login verifies an email/password pair.
//
// Unknown emails, wrong passwords and accounts without a password (Google
// only) all produce the same 401 so the response does not reveal which
// emails are registered.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperror.ValidationFailed("email", "Email and password required")
	}

	invalid := apperror.Unauthorized("Invalid email or password")

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: loading user %s: %w", email, err)
	}
	if !user.HasPassword() {
		return nil, invalid
	}
	if err := s.passwords.Verify(*user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(user, LoginPassword)
}

// Refresh trades a refresh token for a new access token.
// The returned result carries no RefreshToken: the cookie is left as is.
//
// TOKEN FLOW:
//
//	login/signup ──► access token (JSON body, short-lived, sent as Bearer)
//	             └─► refresh token (HttpOnly cookie, long-lived)
//
//	access expired ──► POST /auth/refresh with the cookie ──► new access token
//
// The refresh token is a JWT of kind "refresh"; an access token presented
// here fails the kind check. The user is loaded again on every refresh, so
// deleting an account stops its refresh tokens working even before they
// expire.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apperror.Unauthorized("Missing refresh token")
	}

	userID, err := s.tokens.Decode(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid refresh token")
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("Unknown user")
		}
		return nil, fmt.Errorf("service/auth: loading user %s: %w", userID, err)
	}

	access, err := s.tokens.Issue(user.ID, auth.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing access token for %s: %w", user.ID, err)
	}
	s.metrics.RecordLogin(LoginRefresh)
	return &AuthResult{User: user, AccessToken: access}, nil
}

// DemoLogin finds the user by email or creates one, then logs it in.
// It is refused in production.
func (s *AuthService) DemoLogin(ctx context.Context, req DemoLoginRequest) (*AuthResult, error) {
	if s.opts.Production {
		return nil, apperror.Forbidden("Demo login not allowed in production")
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = "dev_user"
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		email = strings.ToLower(username) + "@example.com"
	}

	var user *model.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.GetUserByEmail(ctx, email)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}

		unique, err := EnsureUniqueUsername(ctx, tx, username)
		if err != nil {
			return err
		}
		user = &model.User{Username: unique, Email: email, Bio: strPtr("Development user")}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: demo login for %s: %w", email, err)
	}

	return s.issue(user, LoginDemo)
}

// DeleteAccount removes userID and everything that hangs off it in one
// transaction.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) (model.DeletionCounts, error) {
	var counts model.DeletionCounts
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		counts, err = tx.DeleteUserCascade(ctx, userID)
		return err
	})
	if err != nil {
		return counts, fmt.Errorf("service/auth: deleting account %s: %w", userID, err)
	}

	s.logger.Info("account deleted",
		slog.String("userID", userID),
		slog.Int64("events", counts.EventsDeleted),
		slog.Int64("participations", counts.ParticipantsDeleted),
		slog.Int64("follows", counts.FollowsDeleted),
	)
	return counts, nil
}

// issue signs an access/refresh token pair for user and records the login.
//
// Both tokens carry only the user id as subject. Anything else about the
// user is read from the database when the token is used, so a profile
// change never leaves stale claims behind.
func (s *AuthService) issue(user *model.User, method string) (*AuthResult, error) {
	access, err := s.tokens.Issue(user.ID, auth.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing access token for %s: %w", user.ID, err)
	}
	refresh, err := s.tokens.Issue(user.ID, auth.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing refresh token for %s: %w", user.ID, err)
	}

	s.metrics.RecordLogin(method)
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// EnsureUniqueUsername returns base if no user has that exact username,
// otherwise the first free one of base1, base2, …
func EnsureUniqueUsername(ctx context.Context, users repository.UserRepository, base string) (string, error) {
	candidate := base
	for suffix := 1; ; suffix++ {
		taken, err := users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("service/auth: checking username %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, suffix)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail requires an "@" followed by a domain containing a dot.
func validEmail(email string) bool {
	_, domain, ok := strings.Cut(email, "@")
	return ok && strings.Contains(domain, ".")
}

func strPtr(s string) *string { return &s }
