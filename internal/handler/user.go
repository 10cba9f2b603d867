package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hopon/hopon-api/internal/auth"
	"github.com/hopon/hopon-api/internal/service"
)

// UserHandler serves /users: creation, lookup, discovery and follows.
type UserHandler struct {
	users  *service.UserService
	social *service.SocialService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, social *service.SocialService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, social: social, logger: logger}
}

type followRequest struct {
	FollowerID string `json:"follower_id"`
}

// HandleCreate creates a passwordless user.
//
// HTTP: POST /users
// REQUEST BODY: {"username", "email", optional "bio", "gender"}
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UserResponse{Message: "User created successfully", User: user})
}

// HandleGet returns one user.
//
// HTTP: GET /users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDiscover lists users with their event counts and whether the
// caller follows them.
//
// HTTP: GET /users/nearby
func (h *UserHandler) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	viewerID := ""
	if caller, ok := auth.CurrentUser(r.Context()); ok {
		viewerID = caller.ID
	}

	users, err := h.social.Discover(r.Context(), viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleFollow makes the caller follow user {id}.
//
// HTTP: POST /users/{id}/follow
// Anonymous callers name the follower in the body: {"follower_id": "..."}.
func (h *UserHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	followerID := req.FollowerID
	if caller, ok := auth.CurrentUser(r.Context()); ok {
		followerID = caller.ID
	}

	created, err := h.social.Follow(r.Context(), followerID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if !created {
		writeMessage(w, http.StatusOK, "Already following")
		return
	}
	writeMessage(w, http.StatusOK, "Followed")
}

// HandleUnfollow removes the follow edge.
//
// HTTP: DELETE /users/{id}/follow
// The follower is the caller, else ?follower_id=, else the body.
func (h *UserHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	followerID := r.URL.Query().Get("follower_id")
	if followerID == "" {
		var req followRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		followerID = req.FollowerID
	}
	if caller, ok := auth.CurrentUser(r.Context()); ok {
		followerID = caller.ID
	}

	removed, err := h.social.Unfollow(r.Context(), followerID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if !removed {
		writeMessage(w, http.StatusOK, "Not following")
		return
	}
	writeMessage(w, http.StatusOK, "Unfollowed")
}
