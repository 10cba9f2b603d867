package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/repository"
)

type seedUser struct {
	username, email, gender, location, sports, bio string
	rating                                         float64
}

type seedEvent struct {
	name, sport, location, notes, skill string
	maxPlayers                          int
	startsIn                            time.Duration
	lat, lng                            float64
}

var demoUsers = []seedUser{
	{"Alex Chen", "alex@example.com", "male", "Downtown", "Basketball,Tennis",
		"Basketball enthusiast, love pickup games and meeting new people!", 4.8},
	{"Sarah Miller", "sarah@example.com", "female", "Riverside", "Tennis,Badminton",
		"Tennis coach by day, competitive player by night.", 4.9},
	{"Emily Carter", "emily@example.com", "female", "Harborfront", "Running,Yoga",
		"Early morning runner seeking new trails and partners for weekend 5Ks.", 4.4},
}

// demoEvents are all hosted by the first demo user.
var demoEvents = []seedEvent{
	{"Downtown Pickup Game", "Basketball", "Central Park Courts",
		"Intermediate run with friendly competition.", "Intermediate", 10, 2 * time.Hour, 43.6532, -79.3832},
	{"Sunrise Run Crew", "Running", "Harborfront Boardwalk",
		"Casual 5K with coffee afterwards.", "All Levels", 25, 6 * time.Hour, 43.6408, -79.3818},
	{"Twilight Tennis Doubles", "Tennis", "Riverside Tennis Club",
		"Advanced doubles ladder. Bring your own racket.", "Advanced", 4, 24 * time.Hour, 43.7001, -79.3568},
}

// SeedDemoData fills an empty database with a few users and events so a
// fresh development install has something to show. It does nothing when
// any user exists and reports whether it seeded.
func SeedDemoData(ctx context.Context, store repository.Store, logger *slog.Logger) (bool, error) {
	n, err := store.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("service/seed: counting users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	now := time.Now().UTC()
	err = store.WithTx(ctx, func(tx repository.Store) error {
		var host *model.User
		for _, su := range demoUsers {
			sports := model.Sports(su.sports)
			u := &model.User{
				Username: su.username,
				Email:    su.email,
				Bio:      strPtr(su.bio),
				Gender:   strPtr(su.gender),
				Rating:   &su.rating,
				Location: strPtr(su.location),
				Sports:   &sports,
			}
			if err := tx.CreateUser(ctx, u); err != nil {
				return err
			}
			if host == nil {
				host = u
			}
		}

		for _, se := range demoEvents {
			date := now.Add(se.startsIn)
			e := &model.Event{
				Name:       se.name,
				Sport:      se.sport,
				Location:   se.location,
				Notes:      strPtr(se.notes),
				MaxPlayers: se.maxPlayers,
				EventDate:  &date,
				Latitude:   &se.lat,
				Longitude:  &se.lng,
				SkillLevel: strPtr(se.skill),
				HostUserID: &host.ID,
			}
			if err := tx.CreateEvent(ctx, e); err != nil {
				return err
			}
			if err := ensureHostParticipant(ctx, tx, e.ID, host); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("service/seed: seeding demo data: %w", err)
	}

	logger.Info("seeded demo data",
		slog.Int("users", len(demoUsers)),
		slog.Int("events", len(demoEvents)),
	)
	return true, nil
}
