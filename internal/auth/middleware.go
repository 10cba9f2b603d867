package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hopon/hopon-api/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of type contextKey, so no other package
// can read or shadow the current user.
type contextKey string

const userKey contextKey = "currentUser"

// UserLookup loads the user a valid access token points at.
// repository.UserRepository satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Identify resolves the bearer token on every request.
//
// If "Authorization: Bearer <jwt>" decodes as a valid access token and the
// subject still exists, the user is attached to the request context.
// Anything else (no header, bad token, deleted user) leaves the request
// anonymous; endpoints that need a user reject it with RequireUser.
//
// Chi applies middlewares in a chain: req → Identify → … → Handler
func Identify(tokens *TokenService, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := resolveUser(r, tokens, users); user != nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser answers 401 unless Identify attached a user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "Authentication required",
				"code":  "unauthorized",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a copy of ctx carrying user as the current user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser returns the user attached by Identify.
//
// Returns (nil, false) if the request is anonymous.
func CurrentUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func resolveUser(r *http.Request, tokens *TokenService, users UserLookup) *model.User {
	raw := BearerToken(r)
	if raw == "" {
		return nil
	}
	userID, err := tokens.Decode(raw, KindAccess)
	if err != nil {
		return nil
	}
	user, err := users.GetUserByID(r.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}
