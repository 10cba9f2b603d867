package sqlstore

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/model"
)

// eventSelect loads events with their participant count and host username
// in one round-trip.
const eventSelect = `SELECT e.id, e.name, e.sport, e.location, e.notes, e.max_players,
	e.event_date, e.latitude, e.longitude, e.skill_level, e.host_user_id, e.created_at,
	(SELECT COUNT(*) FROM event_participants p WHERE p.event_id = e.id) AS current_players,
	u.username AS host_username
	FROM events e
	LEFT JOIN users u ON u.id = e.host_user_id`

const eventOrder = ` ORDER BY e.created_at DESC, e.id DESC`

// xid ids sort by creation time, so e.id breaks created_at ties in
// insertion order.
const eventOrderOldestFirst = ` ORDER BY e.created_at ASC, e.id ASC`

// eventRow is an events row plus the joined host username.
type eventRow struct {
	model.Event
	HostUsername *string `db:"host_username"`
}

func (r eventRow) toModel() model.Event {
	e := r.Event
	if e.HostUserID != nil && r.HostUsername != nil {
		e.Host = &model.UserSummary{ID: *e.HostUserID, Username: *r.HostUsername}
	}
	return e
}

func toEvents(rows []eventRow) []model.Event {
	events := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toModel())
	}
	return events
}

// CreateEvent inserts event, assigning its ID and CreatedAt.
func (db *DB) CreateEvent(ctx context.Context, event *model.Event) error {
	event.ID = xid.New().String()
	event.CreatedAt = time.Now().UTC()

	_, err := db.exec(ctx,
		`INSERT INTO events (id, name, sport, location, notes, max_players, event_date,
			latitude, longitude, skill_level, host_user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Name, event.Sport, event.Location, event.Notes, event.MaxPlayers,
		event.EventDate, event.Latitude, event.Longitude, event.SkillLevel,
		event.HostUserID, event.CreatedAt,
	)
	return translate(err, "inserting event "+event.Name, "event", event.ID, "Event already exists")
}

// GetEvent retrieves one event by ID.
func (db *DB) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var row eventRow
	if err := db.get(ctx, &row, eventSelect+` WHERE e.id = ?`, id); err != nil {
		return nil, translate(err, "getting event "+id, "event", id, "")
	}
	e := row.toModel()
	return &e, nil
}

// ListEvents returns every event, newest first.
func (db *DB) ListEvents(ctx context.Context) ([]model.Event, error) {
	var rows []eventRow
	if err := db.selectAll(ctx, &rows, eventSelect+eventOrder); err != nil {
		return nil, translate(err, "listing events", "event", "", "")
	}
	return toEvents(rows), nil
}

// ListEventsOldestFirst returns every event in creation order.
func (db *DB) ListEventsOldestFirst(ctx context.Context) ([]model.Event, error) {
	var rows []eventRow
	if err := db.selectAll(ctx, &rows, eventSelect+eventOrderOldestFirst); err != nil {
		return nil, translate(err, "listing events oldest first", "event", "", "")
	}
	return toEvents(rows), nil
}

// ListHostedEvents returns the events userID hosts, newest first.
func (db *DB) ListHostedEvents(ctx context.Context, userID string) ([]model.Event, error) {
	var rows []eventRow
	if err := db.selectAll(ctx, &rows,
		eventSelect+` WHERE e.host_user_id = ?`+eventOrder, userID); err != nil {
		return nil, translate(err, "listing hosted events of "+userID, "event", "", "")
	}
	return toEvents(rows), nil
}

// ListJoinedEvents returns the events userID participates in (hosted ones
// included, since hosts are participants), newest first.
func (db *DB) ListJoinedEvents(ctx context.Context, userID string) ([]model.Event, error) {
	var rows []eventRow
	if err := db.selectAll(ctx, &rows,
		eventSelect+` WHERE e.id IN (SELECT event_id FROM event_participants WHERE user_id = ?)`+eventOrder,
		userID); err != nil {
		return nil, translate(err, "listing joined events of "+userID, "event", "", "")
	}
	return toEvents(rows), nil
}

// LockEvent issues a no-op UPDATE on the event row. On PostgreSQL that takes
// the row lock; on SQLite the transaction already holds the database write
// lock (BEGIN IMMEDIATE). Either way concurrent joins on the same event
// queue up behind the current transaction until it ends.
func (db *DB) LockEvent(ctx context.Context, id string) error {
	n, err := db.exec(ctx, `UPDATE events SET max_players = max_players WHERE id = ?`, id)
	if err != nil {
		return translate(err, "locking event "+id, "event", id, "")
	}
	if n == 0 {
		return apperror.NotFound("event", id)
	}
	return nil
}
