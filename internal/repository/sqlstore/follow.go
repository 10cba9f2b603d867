package sqlstore

import (
	"context"
	"time"

	"github.com/rs/xid"
)

// Follow inserts the edge followerID → followeeID. The UNIQUE constraint on
// the pair turns a duplicate into a no-op, reported as created == false.
func (db *DB) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	n, err := db.exec(ctx,
		`INSERT INTO follows (id, follower_id, followee_id, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (follower_id, followee_id) DO NOTHING`,
		xid.New().String(), followerID, followeeID, time.Now().UTC(),
	)
	if err != nil {
		return false, translate(err, "inserting follow", "follow", followerID, "Already following")
	}
	return n > 0, nil
}

// Unfollow removes the edge and reports whether it existed.
func (db *DB) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	n, err := db.exec(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID)
	if err != nil {
		return false, translate(err, "deleting follow", "follow", followerID, "")
	}
	return n > 0, nil
}

// ListFolloweeIDs returns the ids followerID follows.
func (db *DB) ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error) {
	ids := []string{}
	if err := db.selectAll(ctx, &ids,
		`SELECT followee_id FROM follows WHERE follower_id = ? ORDER BY created_at`,
		followerID); err != nil {
		return nil, translate(err, "listing followees of "+followerID, "follow", followerID, "")
	}
	return ids, nil
}
