package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/auth"
	"github.com/hopon/hopon-api/internal/metrics"
	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/repository"
)

// eventDateLayouts are the ISO-8601 forms accepted for event_date, tried in
// order. Values without a zone are taken as UTC.
var eventDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// EventService implements the event lifecycle: creation, listing, joining
// and leaving.
type EventService struct {
	store   repository.Store
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewEventService creates an EventService.
func NewEventService(store repository.Store, rec metrics.Recorder, logger *slog.Logger) *EventService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &EventService{store: store, metrics: rec, logger: logger}
}

// CreateEventRequest is the body of POST /events.
type CreateEventRequest struct {
	Name       string   `json:"name"`
	Sport      string   `json:"sport"`
	Location   string   `json:"location"`
	Notes      *string  `json:"notes"`
	MaxPlayers *int     `json:"max_players"`
	EventDate  *string  `json:"event_date"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	SkillLevel *string  `json:"skill_level"`
	HostUserID *string  `json:"host_user_id"`
}

// JoinRequest is the body of POST /events/{id}/join.
type JoinRequest struct {
	PlayerName string `json:"player_name"`
	Team       string `json:"team"`
	GuestToken string `json:"guest_token"`
}

// JoinResult describes the outcome of a join.
// GuestToken is the raw token, set only for a newly joined guest.
type JoinResult struct {
	Event         *model.Event
	AlreadyJoined bool
	GuestToken    string
}

// Create validates req and inserts the event. When the event has a host,
// the host is enrolled as its first participant in the same transaction.
//
// The host is the caller when authenticated, else req.HostUserID, else none.
func (s *EventService) Create(ctx context.Context, caller *model.User, req CreateEventRequest) (*model.Event, error) {
	name := strings.TrimSpace(req.Name)
	sport := strings.TrimSpace(req.Sport)
	location := strings.TrimSpace(req.Location)
	if name == "" || sport == "" || location == "" || req.MaxPlayers == nil {
		return nil, apperror.ValidationFailed("", "Missing required fields: name, sport, location, max_players")
	}
	if *req.MaxPlayers < 1 {
		return nil, apperror.ValidationFailed("max_players", "max_players must be at least 1")
	}

	var eventDate *time.Time
	if req.EventDate != nil && strings.TrimSpace(*req.EventDate) != "" {
		t, err := parseEventDate(*req.EventDate)
		if err != nil {
			return nil, apperror.ValidationFailed("event_date", "event_date must be an ISO-8601 date")
		}
		eventDate = &t
	}

	event := &model.Event{
		Name:       name,
		Sport:      sport,
		Location:   location,
		Notes:      req.Notes,
		MaxPlayers: *req.MaxPlayers,
		EventDate:  eventDate,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		SkillLevel: req.SkillLevel,
	}

	var created *model.Event
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		host := caller
		if host == nil && req.HostUserID != nil && *req.HostUserID != "" {
			u, err := tx.GetUserByID(ctx, *req.HostUserID)
			if errors.Is(err, apperror.ErrNotFound) {
				return apperror.ValidationFailed("host_user_id", "host user not found")
			}
			if err != nil {
				return err
			}
			host = u
		}
		if host != nil {
			event.HostUserID = &host.ID
		}

		if err := tx.CreateEvent(ctx, event); err != nil {
			return err
		}
		if host != nil {
			if err := ensureHostParticipant(ctx, tx, event.ID, host); err != nil {
				return err
			}
		}

		var err error
		created, err = tx.GetEvent(ctx, event.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service/event: creating %q: %w", name, err)
	}

	s.logger.Info("event created",
		slog.String("eventID", created.ID),
		slog.String("sport", created.Sport),
	)
	return created, nil
}

// ensureHostParticipant enrolls host on the event under the host team
// unless they already are a participant.
func ensureHostParticipant(ctx context.Context, tx repository.Store, eventID string, host *model.User) error {
	_, err := tx.FindParticipantByUser(ctx, eventID, host.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	team := model.HostTeam
	return tx.AddParticipant(ctx, &model.Participant{
		EventID:    eventID,
		UserID:     &host.ID,
		PlayerName: host.Username,
		Team:       &team,
	})
}

// List returns every event, newest first.
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/event: listing: %w", err)
	}
	return events, nil
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, id string) (*model.Event, error) {
	event, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/event: getting %s: %w", id, err)
	}
	return event, nil
}

// Nearby lists every event ordered by distance from (lat, lng).
//
// ORDERING:
// The sort is stable and starts from creation order, so events at the same
// distance, and every event without coordinates, keep the order in which
// they were created. Without a query point the result is creation order.
func (s *EventService) Nearby(ctx context.Context, lat, lng *float64) ([]model.NearbyEvent, error) {
	events, err := s.store.ListEventsOldestFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/event: listing for nearby: %w", err)
	}
	return SortByDistance(events, lat, lng), nil
}

// Join registers the caller, or a guest when caller is nil, on the event.
//
// CONCURRENCY:
// The event row is locked before anything is read, so two joins on the
// same event run one after the other and the capacity check cannot be
// raced past.
//
//	goroutine A                     goroutine B
//	BEGIN; LockEvent(e)             BEGIN; LockEvent(e)  ← waits for A
//	count = 1 < 2 → insert
//	COMMIT                          count = 2 → "Event is full"
//
// LockEvent is a no-op UPDATE on the event row. On PostgreSQL it takes the
// row lock until commit. On SQLite the DSN sets _txlock=immediate, so BEGIN
// itself takes the database write lock and the second writer waits on
// busy_timeout instead of reading a count that is about to change.
//
// Joining twice is not an error: the result has AlreadyJoined set.
func (s *EventService) Join(ctx context.Context, eventID string, caller *model.User, req JoinRequest) (*JoinResult, error) {
	team := strings.TrimSpace(req.Team)
	if team == "" {
		team = model.DefaultTeam
	}

	result := &JoinResult{}
	full := false
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.LockEvent(ctx, eventID); err != nil {
			return err
		}

		p := &model.Participant{EventID: eventID, Team: &team}

		if caller != nil {
			_, err := tx.FindParticipantByUser(ctx, eventID, caller.ID)
			if err == nil {
				result.AlreadyJoined = true
				return nil
			}
			if !errors.Is(err, apperror.ErrNotFound) {
				return err
			}

			p.UserID = &caller.ID
			p.PlayerName = strings.TrimSpace(req.PlayerName)
			if p.PlayerName == "" {
				p.PlayerName = caller.Username
			}
		} else {
			name := strings.TrimSpace(req.PlayerName)
			if name == "" {
				return apperror.ValidationFailed("player_name", "player_name is required for guests")
			}

			raw := strings.TrimSpace(req.GuestToken)
			if raw != "" {
				_, err := tx.FindParticipantByGuestToken(ctx, eventID, auth.HashGuestToken(raw))
				if err == nil {
					result.AlreadyJoined = true
					return nil
				}
				if !errors.Is(err, apperror.ErrNotFound) {
					return err
				}
			} else {
				raw = auth.MintGuestToken()
			}

			hash := auth.HashGuestToken(raw)
			p.PlayerName = name
			p.GuestName = &name
			p.GuestTokenHash = &hash
			result.GuestToken = raw
		}

		event, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.IsFull() {
			full = true
			return apperror.Conflict("Event is full")
		}

		return tx.AddParticipant(ctx, p)
	})
	if err != nil {
		if full {
			s.metrics.RecordJoin(metrics.JoinFull)
		}
		return nil, fmt.Errorf("service/event: joining %s: %w", eventID, err)
	}

	if result.AlreadyJoined {
		result.GuestToken = ""
		s.metrics.RecordJoin(metrics.JoinAlreadyJoined)
	} else {
		s.metrics.RecordJoin(metrics.JoinJoined)
	}

	result.Event, err = s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("service/event: reloading %s: %w", eventID, err)
	}
	return result, nil
}

// Leave removes the caller's, or the guest's, registration from the event.
// It reports whether a registration was removed.
func (s *EventService) Leave(ctx context.Context, eventID string, caller *model.User, guestToken string) (bool, error) {
	guestToken = strings.TrimSpace(guestToken)
	if caller == nil && guestToken == "" {
		return false, apperror.ValidationFailed("guest_token", "guest_token is required for guest users")
	}

	left := false
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var (
			p   *model.Participant
			err error
		)
		if caller != nil {
			p, err = tx.FindParticipantByUser(ctx, eventID, caller.ID)
		} else {
			p, err = tx.FindParticipantByGuestToken(ctx, eventID, auth.HashGuestToken(guestToken))
		}
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.DeleteParticipant(ctx, p.ID); err != nil {
			return err
		}
		left = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("service/event: leaving %s: %w", eventID, err)
	}
	return left, nil
}

// Participants returns the event together with its registrations.
func (s *EventService) Participants(ctx context.Context, eventID string) (*model.Event, []model.Participant, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("service/event: getting %s: %w", eventID, err)
	}
	participants, err := s.store.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("service/event: listing participants of %s: %w", eventID, err)
	}
	return event, participants, nil
}

// MyEvents returns the events userID has joined and the ones they host.
func (s *EventService) MyEvents(ctx context.Context, userID string) (*model.MyEvents, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("user_id", "user_id is required")
	}
	joined, err := s.store.ListJoinedEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/event: joined events of %s: %w", userID, err)
	}
	hosted, err := s.store.ListHostedEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/event: hosted events of %s: %w", userID, err)
	}
	return &model.MyEvents{Joined: joined, Hosted: hosted}, nil
}

func parseEventDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range eventDateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
