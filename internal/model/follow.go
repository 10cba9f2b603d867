package model

import "time"

// Follow is a directed edge: FollowerID follows FolloweeID.
type Follow struct {
	ID         string    `json:"id"          db:"id"`
	FollowerID string    `json:"follower_id" db:"follower_id"`
	FolloweeID string    `json:"followee_id" db:"followee_id"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}
