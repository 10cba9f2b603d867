package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/repository"
)

// Username length bounds, counted in characters.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

// ProfileUpdate is the body of PATCH /auth/profile and POST
// /auth/setup-account. Absent fields are left alone; an explicit null
// clears the column.
type ProfileUpdate struct {
	Username  model.Optional[string]       `json:"username"`
	Bio       model.Optional[string]       `json:"bio"`
	Location  model.Optional[string]       `json:"location"`
	Latitude  model.Optional[float64]      `json:"latitude"`
	Longitude model.Optional[float64]      `json:"longitude"`
	Sports    model.Optional[model.Sports] `json:"sports"`
}

// UsernameAvailability is the result of CheckUsername.
type UsernameAvailability struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// CheckUsername reports whether username could be claimed. Only a blank
// value is an error; every other outcome is an answer.
func (s *UserService) CheckUsername(ctx context.Context, username string) (UsernameAvailability, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return UsernameAvailability{}, apperror.ValidationFailed("username", "Username parameter is required")
	}
	if msg := usernameLengthProblem(username); msg != "" {
		return UsernameAvailability{Available: false, Message: msg}, nil
	}

	taken, err := s.store.UsernameExistsFold(ctx, username)
	if err != nil {
		return UsernameAvailability{}, fmt.Errorf("service/user: checking username %q: %w", username, err)
	}
	if taken {
		return UsernameAvailability{Available: false, Message: "Username already taken"}, nil
	}
	return UsernameAvailability{Available: true, Message: "Username is available"}, nil
}

// UpdateProfile applies a partial update to the user's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	return s.applyProfile(ctx, userID, upd, false)
}

// SetupAccount finishes a new account: like UpdateProfile, but a username
// must be supplied.
func (s *UserService) SetupAccount(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	return s.applyProfile(ctx, userID, upd, true)
}

func (s *UserService) applyProfile(ctx context.Context, userID string, upd ProfileUpdate, requireUsername bool) (*model.User, error) {
	var user *model.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = tx.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}

		if requireUsername || upd.Username.Set {
			username := ""
			if upd.Username.Value != nil {
				username = strings.TrimSpace(*upd.Username.Value)
			}
			if username == "" {
				if requireUsername {
					return apperror.ValidationFailed("username", "Username is required")
				}
				return apperror.ValidationFailed("username", "Username cannot be empty")
			}
			if msg := usernameLengthProblem(username); msg != "" {
				return apperror.ValidationFailed("username", msg)
			}
			if username != user.Username {
				taken, err := tx.UsernameExists(ctx, username)
				if err != nil {
					return err
				}
				if taken {
					return apperror.Conflict("Username already taken")
				}
				user.Username = username
			}
		}

		if upd.Bio.Set {
			user.Bio = blankToNil(upd.Bio.Value)
		}
		if upd.Location.Set {
			user.Location = blankToNil(upd.Location.Value)
		}
		if upd.Latitude.Set {
			user.Latitude = upd.Latitude.Value
		}
		if upd.Longitude.Set {
			user.Longitude = upd.Longitude.Value
		}
		if upd.Sports.Set {
			user.Sports = nil
			if v := upd.Sports.Value; v != nil && len(v.List()) > 0 {
				joined := model.JoinSports(v.List())
				user.Sports = &joined
			}
		}

		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("service/user: updating profile of %s: %w", userID, err)
	}
	return user, nil
}

func usernameLengthProblem(username string) string {
	switch n := utf8.RuneCountInString(username); {
	case n < MinUsernameLength:
		return fmt.Sprintf("Username must be at least %d characters", MinUsernameLength)
	case n > MaxUsernameLength:
		return fmt.Sprintf("Username must be at most %d characters", MaxUsernameLength)
	}
	return ""
}

// blankToNil trims v and maps an empty result to nil.
func blankToNil(v *string) *string {
	if v == nil {
		return nil
	}
	return optionalString(*v)
}
