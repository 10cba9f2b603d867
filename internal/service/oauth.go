package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/auth"
	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/repository"
)

// GoogleLogin links the Google profile to an account (creating one if
// needed) and logs it in.
//
// MATCHING:
//  1. A user whose google_sub equals the profile's subject.
//  2. Otherwise a user with the same email. Its google_sub is backfilled,
//     which links an existing password account to Google.
//  3. Otherwise a new user with a username derived from the profile.
//
// NeedsUsernameSetup is true only for users created by this call.
func (s *AuthService) GoogleLogin(ctx context.Context, profile *auth.GoogleProfile) (*AuthResult, error) {
	user, created, err := s.linkGoogleIdentity(ctx, profile, "")
	if err != nil {
		return nil, err
	}

	result, err := s.issue(user, LoginGoogle)
	if err != nil {
		return nil, err
	}
	result.NeedsUsernameSetup = created
	return result, nil
}

// DevGoogleLogin simulates a Google login without talking to Google.
// Only available outside production and when DEV_GOOGLE_LOGIN is enabled.
func (s *AuthService) DevGoogleLogin(ctx context.Context, email, name string) (*AuthResult, error) {
	if s.opts.Production || !s.opts.DevGoogleLogin {
		return nil, apperror.Forbidden("Dev Google login is not allowed in production.")
	}

	email = normalizeEmail(email)
	if email == "" {
		email = fmt.Sprintf("dev+%d@example.com", time.Now().Unix())
	}

	profile := &auth.GoogleProfile{
		Subject: "dev:" + email,
		Email:   email,
		Name:    strings.TrimSpace(name),
	}
	user, created, err := s.linkGoogleIdentity(ctx, profile, devGoogleBio)
	if err != nil {
		return nil, err
	}

	result, err := s.issue(user, LoginDev)
	if err != nil {
		return nil, err
	}
	result.NeedsUsernameSetup = created
	return result, nil
}

// devGoogleBio tags accounts created through the dev Google login.
const devGoogleBio = "Development user (Google dev login)"

// linkGoogleIdentity finds or creates the user behind profile in one
// transaction. newUserBio, when set, replaces the profile URL as the bio of
// a newly created user; existing users keep theirs.
func (s *AuthService) linkGoogleIdentity(ctx context.Context, profile *auth.GoogleProfile, newUserBio string) (*model.User, bool, error) {
	if profile == nil || profile.Subject == "" || strings.TrimSpace(profile.Email) == "" {
		return nil, false, apperror.ValidationFailed("google",
			"Google profile is missing required information (sub, email)")
	}
	email := normalizeEmail(profile.Email)

	var (
		user    *model.User
		created bool
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.FindUserByGoogleSubOrEmail(ctx, profile.Subject, email)
		switch {
		case err == nil:
			user = existing
			changed := false
			if user.GoogleSub == nil || *user.GoogleSub == "" {
				user.GoogleSub = strPtr(profile.Subject)
				changed = true
			}
			if profile.Picture != "" && (user.AvatarURL == nil || *user.AvatarURL != profile.Picture) {
				user.AvatarURL = strPtr(profile.Picture)
				changed = true
			}
			if changed {
				return tx.UpdateUser(ctx, user)
			}
			return nil

		case errors.Is(err, apperror.ErrNotFound):
			displayName := strings.TrimSpace(profile.Name)
			if displayName == "" {
				displayName, _, _ = strings.Cut(email, "@")
			}
			givenName := strings.TrimSpace(profile.GivenName)
			if givenName == "" {
				givenName = displayName
			}

			username, err := EnsureUniqueUsername(ctx, tx, UsernameSeed(givenName))
			if err != nil {
				return err
			}

			bio := optionalString(profile.Profile)
			if newUserBio != "" {
				bio = strPtr(newUserBio)
			}
			user = &model.User{
				Username:  username,
				Email:     email,
				GoogleSub: strPtr(profile.Subject),
				Bio:       bio,
				AvatarURL: optionalString(profile.Picture),
			}
			created = true
			return tx.CreateUser(ctx, user)

		default:
			return err
		}
	})
	if err != nil {
		return nil, false, fmt.Errorf("service/auth: linking Google identity %s: %w", email, err)
	}

	if created {
		s.logger.Info("user created from Google profile",
			slog.String("userID", user.ID),
			slog.String("username", user.Username),
		)
	}
	return user, created, nil
}

// UsernameSeed turns a display name into a username candidate: lowercased,
// every rune that is not a letter or digit replaced by "_", leading and
// trailing "_" trimmed, and "player" when nothing usable is left.
//
//	"Jane Doe"  → "jane_doe"
//	"Jane  Doe" → "jane__doe"
//	"  ¡Olé!  " → "olé"
func UsernameSeed(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	seed := strings.Trim(b.String(), "_")
	if seed == "" {
		return "player"
	}
	return seed
}

func optionalString(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
