package sqlstore

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/hopon/hopon-api/internal/model"
)

const participantColumns = `id, event_id, user_id, player_name, team, guest_name, guest_token, joined_at`

// AddParticipant inserts p, assigning its ID and JoinedAt. A second row for
// the same (event, user) or (event, guest token) yields apperror.ErrConflict.
func (db *DB) AddParticipant(ctx context.Context, p *model.Participant) error {
	p.ID = xid.New().String()
	p.JoinedAt = time.Now().UTC()

	_, err := db.exec(ctx,
		`INSERT INTO event_participants (`+participantColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.EventID, p.UserID, p.PlayerName, p.Team, p.GuestName, p.GuestTokenHash, p.JoinedAt,
	)
	return translate(err, "inserting participant into "+p.EventID, "participant", p.ID, "Failed to join event")
}

// FindParticipantByUser returns the registration of userID on eventID.
func (db *DB) FindParticipantByUser(ctx context.Context, eventID, userID string) (*model.Participant, error) {
	var p model.Participant
	err := db.get(ctx, &p,
		`SELECT `+participantColumns+` FROM event_participants WHERE event_id = ? AND user_id = ?`,
		eventID, userID)
	if err != nil {
		return nil, translate(err, "finding participant", "participant", userID, "")
	}
	return &p, nil
}

// FindParticipantByGuestToken returns the guest registration whose stored
// token hash equals tokenHash.
func (db *DB) FindParticipantByGuestToken(ctx context.Context, eventID, tokenHash string) (*model.Participant, error) {
	var p model.Participant
	err := db.get(ctx, &p,
		`SELECT `+participantColumns+` FROM event_participants WHERE event_id = ? AND guest_token = ?`,
		eventID, tokenHash)
	if err != nil {
		return nil, translate(err, "finding guest participant", "participant", "guest", "")
	}
	return &p, nil
}

// ListParticipants returns the registrations on eventID in join order.
func (db *DB) ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error) {
	participants := []model.Participant{}
	if err := db.selectAll(ctx, &participants,
		`SELECT `+participantColumns+` FROM event_participants WHERE event_id = ?
		 ORDER BY joined_at, id`, eventID); err != nil {
		return nil, translate(err, "listing participants of "+eventID, "event", eventID, "")
	}
	return participants, nil
}

// DeleteParticipant removes one registration. Deleting a row that is
// already gone is not an error.
func (db *DB) DeleteParticipant(ctx context.Context, id string) error {
	_, err := db.exec(ctx, `DELETE FROM event_participants WHERE id = ?`, id)
	return translate(err, "deleting participant "+id, "participant", id, "")
}

// ParticipationCounts maps each registered user to their number of joins.
func (db *DB) ParticipationCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		UserID string `db:"user_id"`
		Count  int    `db:"n"`
	}
	if err := db.selectAll(ctx, &rows,
		`SELECT user_id, COUNT(*) AS n FROM event_participants
		 WHERE user_id IS NOT NULL GROUP BY user_id`); err != nil {
		return nil, translate(err, "counting participations", "participant", "", "")
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.UserID] = r.Count
	}
	return counts, nil
}
