package sqlstore

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/model"
)

const userColumns = `id, username, email, password_hash, google_sub, bio, gender, rating,
	location, latitude, longitude, sports, avatar_url, created_at`

const userConflict = "Username or email already exists"

// CreateUser inserts user, assigning its ID and CreatedAt.
// A duplicate username, email or Google subject yields apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err := db.exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.GoogleSub,
		user.Bio, user.Gender, user.Rating, user.Location, user.Latitude,
		user.Longitude, user.Sports, user.AvatarURL, user.CreatedAt,
	)
	return translate(err, "inserting user "+user.Username, "user", user.ID, userConflict)
}

// GetUserByID retrieves a user by their internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, translate(err, "getting user "+id, "user", id, userConflict)
	}
	return &u, nil
}

// GetUserByEmail matches the stored (already lowercased) email exactly.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := db.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, translate(err, "getting user by email", "user", email, userConflict)
	}
	return &u, nil
}

// GetUserByUsernameFold matches username case-insensitively.
func (db *DB) GetUserByUsernameFold(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := db.get(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER(?)
		 ORDER BY created_at LIMIT 1`, username)
	if err != nil {
		return nil, translate(err, "getting user by username", "user", username, userConflict)
	}
	return &u, nil
}

// FindUserByGoogleSubOrEmail returns the user linked to sub, falling back
// to the one registered with email.
func (db *DB) FindUserByGoogleSubOrEmail(ctx context.Context, sub, email string) (*model.User, error) {
	var u model.User
	err := db.get(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE google_sub = ? OR email = ?
		 ORDER BY CASE WHEN google_sub = ? THEN 0 ELSE 1 END LIMIT 1`,
		sub, email, sub)
	if err != nil {
		return nil, translate(err, "finding user by google identity", "user", email, userConflict)
	}
	return &u, nil
}

// UsernameExists matches exactly.
func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	return db.exists(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username)
}

// UsernameExistsFold matches case-insensitively.
func (db *DB) UsernameExistsFold(ctx context.Context, username string) (bool, error) {
	return db.exists(ctx, `SELECT COUNT(*) FROM users WHERE LOWER(username) = LOWER(?)`, username)
}

func (db *DB) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var n int
	if err := db.get(ctx, &n, query, args...); err != nil {
		return false, translate(err, "checking existence", "user", "", userConflict)
	}
	return n > 0, nil
}

// UpdateUser writes every mutable column of user.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	n, err := db.exec(ctx,
		`UPDATE users SET username = ?, email = ?, password_hash = ?, google_sub = ?,
			bio = ?, gender = ?, rating = ?, location = ?, latitude = ?, longitude = ?,
			sports = ?, avatar_url = ?
		 WHERE id = ?`,
		user.Username, user.Email, user.PasswordHash, user.GoogleSub,
		user.Bio, user.Gender, user.Rating, user.Location, user.Latitude, user.Longitude,
		user.Sports, user.AvatarURL, user.ID,
	)
	if err != nil {
		return translate(err, "updating user "+user.ID, "user", user.ID, userConflict)
	}
	if n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// ListUsers returns every user, oldest first.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := db.selectAll(ctx, &users,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`); err != nil {
		return nil, translate(err, "listing users", "user", "", userConflict)
	}
	return users, nil
}

// CountUsers returns the number of accounts.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.get(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, translate(err, "counting users", "user", "", userConflict)
	}
	return n, nil
}

// DeleteUserCascade removes a user and everything hanging off them. The
// foreign keys cascade too; the explicit deletes exist to produce counts.
func (db *DB) DeleteUserCascade(ctx context.Context, id string) (model.DeletionCounts, error) {
	var counts model.DeletionCounts
	var err error

	counts.ParticipantsDeleted, err = db.exec(ctx,
		`DELETE FROM event_participants
		 WHERE user_id = ? OR event_id IN (SELECT id FROM events WHERE host_user_id = ?)`,
		id, id)
	if err != nil {
		return counts, translate(err, "deleting participations of "+id, "user", id, userConflict)
	}

	counts.EventsDeleted, err = db.exec(ctx, `DELETE FROM events WHERE host_user_id = ?`, id)
	if err != nil {
		return counts, translate(err, "deleting events of "+id, "user", id, userConflict)
	}

	counts.FollowsDeleted, err = db.exec(ctx,
		`DELETE FROM follows WHERE follower_id = ? OR followee_id = ?`, id, id)
	if err != nil {
		return counts, translate(err, "deleting follows of "+id, "user", id, userConflict)
	}

	n, err := db.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return counts, translate(err, "deleting user "+id, "user", id, userConflict)
	}
	if n == 0 {
		return counts, apperror.NotFound("user", id)
	}
	return counts, nil
}
