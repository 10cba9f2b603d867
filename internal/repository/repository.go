// Package repository declares the storage interfaces the services depend on.
// The sqlstore package implements all of them on SQLite and PostgreSQL.
package repository

import (
	"context"

	"github.com/hopon/hopon-api/internal/model"
)

// UserRepository reads and writes user accounts.
//
// Lookups return an apperror.ErrNotFound error when nothing matches, and
// writes that hit a unique index return apperror.ErrConflict.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsernameFold(ctx context.Context, username string) (*model.User, error)
	FindUserByGoogleSubOrEmail(ctx context.Context, sub, email string) (*model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UsernameExistsFold(ctx context.Context, username string) (bool, error)
	UpdateUser(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	CountUsers(ctx context.Context) (int, error)
	// DeleteUserCascade removes the user together with their participations,
	// hosted events (and those events' participants) and follow edges in
	// both directions. Call it inside Store.WithTx.
	DeleteUserCascade(ctx context.Context, id string) (model.DeletionCounts, error)
}

// EventRepository reads and writes events. Returned events have
// CurrentPlayers and Host populated.
type EventRepository interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	// ListEventsOldestFirst is ListEvents in creation order.
	ListEventsOldestFirst(ctx context.Context) ([]model.Event, error)
	ListHostedEvents(ctx context.Context, userID string) ([]model.Event, error)
	ListJoinedEvents(ctx context.Context, userID string) ([]model.Event, error)
	// LockEvent takes the write lock on one event row for the rest of the
	// surrounding transaction, serializing concurrent joins.
	LockEvent(ctx context.Context, id string) error
}

// ParticipantRepository manages event registrations.
type ParticipantRepository interface {
	AddParticipant(ctx context.Context, p *model.Participant) error
	FindParticipantByUser(ctx context.Context, eventID, userID string) (*model.Participant, error)
	FindParticipantByGuestToken(ctx context.Context, eventID, tokenHash string) (*model.Participant, error)
	ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error)
	DeleteParticipant(ctx context.Context, id string) error
	// ParticipationCounts maps user id to the number of events joined.
	ParticipationCounts(ctx context.Context) (map[string]int, error)
}

// FollowRepository manages the social graph.
type FollowRepository interface {
	// Follow inserts the edge and reports whether a new row was created.
	Follow(ctx context.Context, followerID, followeeID string) (bool, error)
	// Unfollow deletes the edge and reports whether a row was removed.
	Unfollow(ctx context.Context, followerID, followeeID string) (bool, error)
	ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error)
}

// Store bundles every repository with transaction support.
type Store interface {
	UserRepository
	EventRepository
	ParticipantRepository
	FollowRepository

	// WithTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Inside fn, use only the Store passed in.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
