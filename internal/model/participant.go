package model

import "time"

// HostTeam is the reserved team label of an event's host participant.
const HostTeam = "host"

// DefaultTeam is used when a join request names no team.
const DefaultTeam = "team_a"

// Participant registers either a user (UserID set) or a guest
// (GuestTokenHash set) on an event.
//
// GuestTokenHash holds the SHA-256 of the guest's token, never the token
// itself, and is never serialised.
type Participant struct {
	ID             string    `json:"id"          db:"id"`
	EventID        string    `json:"event_id"    db:"event_id"`
	UserID         *string   `json:"user_id"     db:"user_id"`
	PlayerName     string    `json:"player_name" db:"player_name"`
	Team           *string   `json:"team"        db:"team"`
	GuestName      *string   `json:"guest_name"  db:"guest_name"`
	GuestTokenHash *string   `json:"-"           db:"guest_token"`
	JoinedAt       time.Time `json:"joined_at"   db:"joined_at"`
}
