package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/model"
)

func TestFollow(t *testing.T) {
	db := newTestStore(t)
	svc := NewSocialService(db, nil)
	ctx := context.Background()
	alex := createUser(t, db, "alex")
	sarah := createUser(t, db, "sarah")

	created, err := svc.Follow(ctx, alex.ID, sarah.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Follow(ctx, alex.ID, sarah.ID)
	require.NoError(t, err)
	assert.False(t, created, "second follow reports already following")

	removed, err := svc.Unfollow(ctx, alex.ID, sarah.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Unfollow(ctx, alex.ID, sarah.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFollow_Errors(t *testing.T) {
	db := newTestStore(t)
	svc := NewSocialService(db, nil)
	ctx := context.Background()
	alex := createUser(t, db, "alex")

	tests := []struct {
		name       string
		follower   string
		followee   string
		wantErr    error
		wantSubstr string
	}{
		{"self", alex.ID, alex.ID, apperror.ErrValidation, "cannot follow self"},
		{"self even when unknown", "ghost", "ghost", apperror.ErrValidation, "cannot follow self"},
		{"no follower", "", alex.ID, apperror.ErrValidation, "follower_id"},
		{"unknown followee", alex.ID, "ghost", apperror.ErrNotFound, ""},
		{"unknown follower", "ghost", alex.ID, apperror.ErrNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Follow(ctx, tt.follower, tt.followee)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantSubstr != "" {
				assert.ErrorContains(t, err, tt.wantSubstr)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	db := newTestStore(t)
	social := NewSocialService(db, nil)
	events := NewEventService(db, nil, discardLogger())
	ctx := context.Background()

	alex := createUser(t, db, "alex")
	sarah := createUser(t, db, "sarah")
	createEvent(t, events, alex, 4)
	createEvent(t, events, alex, 4)

	_, err := social.Follow(ctx, sarah.ID, alex.ID)
	require.NoError(t, err)

	byID := func(list []model.DiscoveredUser) map[string]model.DiscoveredUser {
		m := map[string]model.DiscoveredUser{}
		for _, u := range list {
			m[u.ID] = u
		}
		return m
	}

	seenBySarah, err := social.Discover(ctx, sarah.ID)
	require.NoError(t, err)
	got := byID(seenBySarah)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[alex.ID].EventsCount)
	assert.Equal(t, 2, got[alex.ID].EventsCountCamel)
	assert.True(t, got[alex.ID].IsFollowing)
	assert.Equal(t, 0, got[sarah.ID].EventsCount)
	assert.False(t, got[sarah.ID].IsFollowing)

	anonymous, err := social.Discover(ctx, "")
	require.NoError(t, err)
	for _, u := range anonymous {
		assert.False(t, u.IsFollowing, "anonymous viewer follows nobody")
	}
}
