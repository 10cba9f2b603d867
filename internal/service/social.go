package service

import (
	"context"
	"fmt"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/metrics"
	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/repository"
)

// SocialService manages follow edges and the user discovery listing.
type SocialService struct {
	store   repository.Store
	metrics metrics.Recorder
}

// NewSocialService creates a SocialService.
func NewSocialService(store repository.Store, rec metrics.Recorder) *SocialService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &SocialService{store: store, metrics: rec}
}

// Follow makes followerID follow followeeID. It reports false when the
// edge already existed.
//
// IDEMPOTENCY:
// The follows table has UNIQUE(follower_id, followee_id) and the insert
// uses ON CONFLICT DO NOTHING, so two concurrent follows of the same pair
// create one row and the loser simply sees "already following". There is
// no check-then-insert window.
func (s *SocialService) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == "" {
		return false, apperror.ValidationFailed("follower_id", "follower_id is required")
	}
	if followerID == followeeID {
		return false, apperror.ValidationFailed("followee_id", "cannot follow self")
	}

	var created bool
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		for _, id := range []string{followerID, followeeID} {
			if _, err := tx.GetUserByID(ctx, id); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.Follow(ctx, followerID, followeeID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("service/social: %s following %s: %w", followerID, followeeID, err)
	}

	s.metrics.RecordFollow(created)
	return created, nil
}

// Unfollow removes the edge. It reports false when there was none.
func (s *SocialService) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == "" {
		return false, apperror.ValidationFailed("follower_id", "follower_id is required")
	}
	removed, err := s.store.Unfollow(ctx, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("service/social: %s unfollowing %s: %w", followerID, followeeID, err)
	}
	return removed, nil
}

// Discover lists every user with how many events they joined and whether
// viewerID follows them. An empty viewerID marks every user as not
// followed.
func (s *SocialService) Discover(ctx context.Context, viewerID string) ([]model.DiscoveredUser, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/social: listing users: %w", err)
	}
	counts, err := s.store.ParticipationCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/social: counting participations: %w", err)
	}

	following := map[string]bool{}
	if viewerID != "" {
		ids, err := s.store.ListFolloweeIDs(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("service/social: listing followees of %s: %w", viewerID, err)
		}
		for _, id := range ids {
			following[id] = true
		}
	}

	out := make([]model.DiscoveredUser, 0, len(users))
	for _, u := range users {
		n := counts[u.ID]
		out = append(out, model.DiscoveredUser{
			User:             u,
			EventsCount:      n,
			EventsCountCamel: n,
			IsFollowing:      following[u.ID],
		})
	}
	return out, nil
}
