package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/auth"
	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/service"
)

// refreshCookieName holds the long-lived refresh token.
const refreshCookieName = "refresh_token"

// CookieOptions controls the attributes of the refresh_token cookie.
type CookieOptions struct {
	SameSite http.SameSite
	Secure   bool
	MaxAge   int // seconds, the refresh token lifetime
}

// AuthHandler serves the /auth endpoints that do not involve Google.
//
// TOKENS:
// Every login response carries a short-lived access token in the JSON body
// (the SPA keeps it in memory and sends it as a Bearer header) and sets the
// refresh token in an HttpOnly cookie that JavaScript cannot read.
//
// DEPENDENCY CHAIN:
//   - auth  *service.AuthService → signup, login, refresh, account deletion
//   - users *service.UserService → username checks and profile edits
type AuthHandler struct {
	auth    *service.AuthService
	users   *service.UserService
	cookies CookieOptions
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, users *service.UserService, cookies CookieOptions, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, users: users, cookies: cookies, logger: logger}
}

// AuthResponse is returned by every endpoint that logs a user in.
type AuthResponse struct {
	Message            string      `json:"message"`
	User               *model.User `json:"user"`
	AccessToken        string      `json:"access_token"`
	NeedsUsernameSetup *bool       `json:"needs_username_setup,omitempty"`
}

// SessionResponse is the body of GET /auth/session.
type SessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
	AccessToken   string      `json:"access_token,omitempty"`
}

// UserResponse wraps a user with an outcome message.
type UserResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// HandleSignup creates a password account.
//
// HTTP: POST /auth/signup
// REQUEST BODY: {"email": "...", "password": "...", "username": "..."}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	needsSetup := true
	writeJSON(w, http.StatusCreated, AuthResponse{
		Message:            "Signup successful",
		User:               result.User,
		AccessToken:        result.AccessToken,
		NeedsUsernameSetup: &needsSetup,
	})
}

// HandleLogin verifies an email/password pair.
//
// HTTP: POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusOK, AuthResponse{
		Message:     "Login successful",
		User:        result.User,
		AccessToken: result.AccessToken,
	})
}

// HandleDemoLogin logs in (or creates) a development user.
//
// HTTP: POST /auth/demo-login
func (h *AuthHandler) HandleDemoLogin(w http.ResponseWriter, r *http.Request) {
	var req service.DemoLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.DemoLogin(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusOK, AuthResponse{
		Message:     "Demo login successful",
		User:        result.User,
		AccessToken: result.AccessToken,
	})
}

// HandleRefresh trades the refresh cookie for a new access token.
//
// HTTP: POST /auth/refresh
//
// A cookie that is present but no longer usable (bad signature, expired,
// user deleted) is cleared so the browser stops sending it.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token := refreshCookie(r)
	if token == "" {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "Missing refresh token")
		return
	}

	result, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.clearRefreshCookie(w)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": result.AccessToken,
		"user":         result.User,
	})
}

// HandleLogout clears the refresh cookie.
//
// HTTP: POST /auth/logout
//
// Access tokens stay valid until they expire (15 minutes by default); the
// client is expected to drop its copy.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearRefreshCookie(w)
	writeMessage(w, http.StatusOK, "Logged out")
}

// HandleSession reports who the caller is.
//
// HTTP: GET /auth/session
//
//	Bearer user present         → {authenticated: true, user}
//	only a valid refresh cookie → {authenticated: true, user, access_token}
//	neither                     → {authenticated: false}
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if user, ok := auth.CurrentUser(r.Context()); ok {
		writeJSON(w, http.StatusOK, SessionResponse{Authenticated: true, User: user})
		return
	}

	if token := refreshCookie(r); token != "" {
		result, err := h.auth.Refresh(r.Context(), token)
		if err == nil {
			writeJSON(w, http.StatusOK, SessionResponse{
				Authenticated: true,
				User:          result.User,
				AccessToken:   result.AccessToken,
			})
			return
		}
		if !errors.Is(err, apperror.ErrUnauthorized) {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, SessionResponse{Authenticated: false})
}

// HandleDeleteAccount deletes the caller and everything they own.
//
// HTTP: DELETE /auth/delete-account (requires a bearer token)
func (h *AuthHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	if _, err := h.auth.DeleteAccount(r.Context(), user.ID); err != nil {
		writeError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	writeMessage(w, http.StatusOK, "Account deleted successfully")
}

// HandleUsernameAvailable answers whether a username can be claimed.
//
// HTTP: GET /auth/username-available?username=xxx
func (h *AuthHandler) HandleUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	result, err := h.users.CheckUsername(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleUpdateProfile applies a partial profile update.
//
// HTTP: PATCH /auth/profile (requires a bearer token)
// REQUEST BODY: any of username, bio, location, latitude, longitude, sports.
// A field sent as null is cleared.
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	h.handleProfile(w, r, h.users.UpdateProfile, "Profile updated successfully")
}

// HandleSetupAccount completes a new account.
//
// HTTP: POST /auth/setup-account (requires a bearer token)
func (h *AuthHandler) HandleSetupAccount(w http.ResponseWriter, r *http.Request) {
	h.handleProfile(w, r, h.users.SetupAccount, "Account setup completed successfully")
}

type profileFunc func(ctx context.Context, userID string, upd service.ProfileUpdate) (*model.User, error)

func (h *AuthHandler) handleProfile(w http.ResponseWriter, r *http.Request, apply profileFunc, message string) {
	user, _ := auth.CurrentUser(r.Context())

	var upd service.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, err)
		return
	}

	updated, err := apply(r.Context(), user.ID, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Message: message, User: updated})
}

// ===== COOKIES =====

func refreshCookie(r *http.Request) string {
	c, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	setRefreshCookie(w, h.cookies, token)
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	setRefreshCookie(w, h.cookies, "")
}

// setRefreshCookie writes the refresh_token cookie. An empty token
// deletes it.
//
// HttpOnly keeps it away from JavaScript. SameSite=None (with Secure) is
// needed in production because the SPA is served from another site.
func setRefreshCookie(w http.ResponseWriter, opts CookieOptions, token string) {
	maxAge := opts.MaxAge
	if token == "" {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
