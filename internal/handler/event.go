package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hopon/hopon-api/internal/auth"
	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/service"
)

// EventHandler serves /events and /me/events.
//
// Most endpoints accept an optional bearer token: with one, the caller acts
// as themselves; without one, they act as a guest (joins) or name a user in
// the request (event host, my-events).
type EventHandler struct {
	events *service.EventService
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(events *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// EventResponse wraps an event with an outcome message.
type EventResponse struct {
	Message    string       `json:"message"`
	Event      *model.Event `json:"event"`
	GuestToken string       `json:"guest_token,omitempty"`
}

// ParticipantsResponse is the body of GET /events/{id}/participants.
type ParticipantsResponse struct {
	Event        *model.Event        `json:"event"`
	Participants []model.Participant `json:"participants"`
}

// HandleCreate creates an event.
//
// HTTP: POST /events
// REQUEST BODY: {"name", "sport", "location", "max_players", optional
// "notes", "event_date", "latitude", "longitude", "skill_level", "host_user_id"}
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req service.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller, _ := auth.CurrentUser(r.Context())
	event, err := h.events.Create(r.Context(), caller, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, EventResponse{Message: "Event created successfully", Event: event})
}

// HandleList returns every event, newest first.
//
// HTTP: GET /events
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleNearby returns every event ordered by distance.
//
// HTTP: GET /events/nearby?lat=43.65&lng=-79.38
func (h *EventHandler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.Nearby(r.Context(), queryFloat(r, "lat"), queryFloat(r, "lng"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleGet returns one event.
//
// HTTP: GET /events/{id}
func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleJoin registers the caller, or a guest, on the event.
//
// HTTP: POST /events/{id}/join
// REQUEST BODY: {"player_name", "team", "guest_token"}, all optional for
// authenticated callers.
func (h *EventHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var req service.JoinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller, _ := auth.CurrentUser(r.Context())
	result, err := h.events.Join(r.Context(), chi.URLParam(r, "id"), caller, req)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.AlreadyJoined {
		writeJSON(w, http.StatusOK, EventResponse{Message: "Already joined", Event: result.Event})
		return
	}
	writeJSON(w, http.StatusOK, EventResponse{
		Message:    "Successfully joined event",
		Event:      result.Event,
		GuestToken: result.GuestToken,
	})
}

// HandleLeave removes the caller's, or the guest's, registration.
//
// HTTP: POST /events/{id}/leave
// REQUEST BODY: {"guest_token"} for guests.
func (h *EventHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GuestToken string `json:"guest_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller, _ := auth.CurrentUser(r.Context())
	left, err := h.events.Leave(r.Context(), chi.URLParam(r, "id"), caller, req.GuestToken)
	if err != nil {
		writeError(w, err)
		return
	}

	if !left {
		writeMessage(w, http.StatusOK, "Not a participant")
		return
	}
	writeMessage(w, http.StatusOK, "Left event")
}

// HandleParticipants returns the event and its registrations.
//
// HTTP: GET /events/{id}/participants
func (h *EventHandler) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	event, participants, err := h.events.Participants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ParticipantsResponse{Event: event, Participants: participants})
}

// HandleMyEvents lists the events a user joined and hosts.
//
// HTTP: GET /me/events[?user_id=xxx]
// The bearer user wins over the user_id query parameter.
func (h *EventHandler) HandleMyEvents(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if caller, ok := auth.CurrentUser(r.Context()); ok {
		userID = caller.ID
	}

	mine, err := h.events.MyEvents(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mine)
}
