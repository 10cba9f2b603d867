// Package model defines the data structures used throughout the application.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// User represents a registered account.
//
// A user signs up with email/password, links a Google account, or both.
// PasswordHash and GoogleSub are therefore both optional and neither is
// ever serialised to clients.
type User struct {
	ID           string    `json:"id"          db:"id"`
	Username     string    `json:"username"    db:"username"`
	Email        string    `json:"email"       db:"email"`
	PasswordHash *string   `json:"-"           db:"password_hash"`
	GoogleSub    *string   `json:"-"           db:"google_sub"`
	Bio          *string   `json:"bio"         db:"bio"`
	Gender       *string   `json:"gender"      db:"gender"`
	Rating       *float64  `json:"rating"      db:"rating"`
	Location     *string   `json:"location"    db:"location"`
	Latitude     *float64  `json:"latitude"    db:"latitude"`
	Longitude    *float64  `json:"longitude"   db:"longitude"`
	Sports       *Sports   `json:"sports"      db:"sports"`
	AvatarURL    *string   `json:"avatar_url"  db:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"  db:"created_at"`
}

// Summary is the public {id, username} view embedded in events.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Username: u.Username}
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// UserSummary is the minimal public identity of a user.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Sports is the comma-joined list of sports a user plays, stored as a
// single text column and rendered as a JSON array.
type Sports string

// JoinSports joins a list of sports with ", " for storage.
func JoinSports(list []string) Sports {
	cleaned := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return Sports(strings.Join(cleaned, ", "))
}

// List splits the stored value into trimmed, non-empty entries.
func (s Sports) List() []string {
	list := []string{}
	for _, part := range strings.Split(string(s), ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}

func (s Sports) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON accepts either a JSON array of strings or a single
// comma-separated string.
func (s *Sports) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = JoinSports(list)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = Sports(strings.TrimSpace(str))
	return nil
}

// Value stores Sports as plain text on every driver.
func (s Sports) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan reads the text column back.
func (s *Sports) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = ""
	case string:
		*s = Sports(v)
	case []byte:
		*s = Sports(v)
	default:
		return fmt.Errorf("model: cannot scan %T into Sports", src)
	}
	return nil
}

// DiscoveredUser is a user as shown in the discovery listing.
// events_count and eventsCount carry the same value; both spellings are
// read by existing clients.
type DiscoveredUser struct {
	User
	EventsCount      int  `json:"events_count"`
	EventsCountCamel int  `json:"eventsCount"`
	IsFollowing      bool `json:"is_following"`
}

// DeletionCounts reports what a cascading account deletion removed.
type DeletionCounts struct {
	ParticipantsDeleted int64 `json:"event_participants_deleted"`
	EventsDeleted       int64 `json:"events_deleted"`
	FollowsDeleted      int64 `json:"follows_deleted"`
}
