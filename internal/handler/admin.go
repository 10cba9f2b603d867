package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hopon/hopon-api/internal/service"
)

// adminSecretHeader carries the shared admin secret.
const adminSecretHeader = "X-Admin-Secret"

// AdminHandler serves maintenance endpoints.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// AdminDeleteResponse reports what an admin deletion removed.
type AdminDeleteResponse struct {
	Message                  string `json:"message"`
	UserID                   string `json:"user_id"`
	EventParticipantsDeleted int64  `json:"event_participants_deleted"`
	EventsDeleted            int64  `json:"events_deleted"`
	FollowsDeleted           int64  `json:"follows_deleted"`
}

// HandleDeleteUserByUsername deletes a user and everything they own.
//
// HTTP: POST /admin/delete-user-by-username/{username}
// HEADER: X-Admin-Secret
func (h *AdminHandler) HandleDeleteUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	out, err := h.admin.DeleteUserByUsername(r.Context(), r.Header.Get(adminSecretHeader), username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminDeleteResponse{
		Message:                  fmt.Sprintf("User %q deleted successfully", username),
		UserID:                   out.UserID,
		EventParticipantsDeleted: out.Counts.ParticipantsDeleted,
		EventsDeleted:            out.Counts.EventsDeleted,
		FollowsDeleted:           out.Counts.FollowsDeleted,
	})
}
