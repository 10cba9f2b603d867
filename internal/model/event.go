package model

import "time"

// Event is a sporting meetup that users and guests can join.
//
// CurrentPlayers and Host are not columns of the events table: the store
// fills them from the participant count and the host's user row.
type Event struct {
	ID             string       `json:"id"              db:"id"`
	Name           string       `json:"name"            db:"name"`
	Sport          string       `json:"sport"           db:"sport"`
	Location       string       `json:"location"        db:"location"`
	Notes          *string      `json:"notes"           db:"notes"`
	MaxPlayers     int          `json:"max_players"     db:"max_players"`
	EventDate      *time.Time   `json:"event_date"      db:"event_date"`
	Latitude       *float64     `json:"latitude"        db:"latitude"`
	Longitude      *float64     `json:"longitude"       db:"longitude"`
	SkillLevel     *string      `json:"skill_level"     db:"skill_level"`
	HostUserID     *string      `json:"host_user_id"    db:"host_user_id"`
	CreatedAt      time.Time    `json:"created_at"      db:"created_at"`
	CurrentPlayers int          `json:"current_players" db:"current_players"`
	Host           *UserSummary `json:"host"            db:"-"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (e *Event) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// IsFull reports whether the event has reached capacity.
func (e *Event) IsFull() bool {
	return e.CurrentPlayers >= e.MaxPlayers
}

// NearbyEvent is an event annotated with its distance from a query point.
// DistanceKM is nil when either side lacks coordinates.
type NearbyEvent struct {
	Event
	DistanceKM *float64 `json:"distance_km"`
}

// MyEvents groups the events a user has joined and the ones they host.
type MyEvents struct {
	Joined []Event `json:"joined"`
	Hosted []Event `json:"hosted"`
}
