package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

func TestFollowRejectsSelf(t *testing.T) {
	db := newTestDB(t)
	a := mkUser(t, db, "a")
	svc := NewFollowService(db, 0, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Follow(ctx, a.ID, a.ID), utils.ErrInvalidOperation)
	assert.ErrorIs(t, svc.FollowByHandle(ctx, a.ID, "a"), utils.ErrInvalidOperation)

	var n int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestFollowIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	a, b := mkUser(t, db, "a"), mkUser(t, db, "b")
	sink := newEventSink()
	svc := NewFollowService(db, 0, sink)
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, a.ID, b.ID))
	require.NoError(t, svc.Follow(ctx, a.ID, b.ID))
	require.NoError(t, svc.FollowByHandle(ctx, a.ID, "b"))

	var n int64
	require.NoError(t, db.Model(&models.Follow{}).Where("user_id = ? AND author_id = ?", a.ID, b.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	events := sink.wait(t, 1)
	assert.Equal(t, utils.SubjectFollowCreated, events[0].subject)

	ok, err := svc.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.IsFollowing(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok, "edges are directed")
}

func TestFollowUnknownTarget(t *testing.T) {
	db := newTestDB(t)
	a := mkUser(t, db, "a")
	svc := NewFollowService(db, 0, nil)

	assert.ErrorIs(t, svc.Follow(context.Background(), a.ID, 999), utils.ErrNotFound)
	assert.ErrorIs(t, svc.FollowByHandle(context.Background(), a.ID, "ghost"), utils.ErrNotFound)
}

func TestFollowUnknownFollower(t *testing.T) {
	db := newTestDB(t)
	b := mkUser(t, db, "b")
	svc := NewFollowService(db, 0, nil)

	assert.ErrorIs(t, svc.Follow(context.Background(), 9999, b.ID), utils.ErrNotFound)
	assert.ErrorIs(t, svc.FollowByHandle(context.Background(), 9999, "b"), utils.ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUnfollow(t *testing.T) {
	db := newTestDB(t)
	a, b := mkUser(t, db, "a"), mkUser(t, db, "b")
	svc := NewFollowService(db, 0, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Unfollow(ctx, a.ID, b.ID), utils.ErrNotFound, "absent edge")

	require.NoError(t, svc.Follow(ctx, a.ID, b.ID))
	require.NoError(t, svc.UnfollowByHandle(ctx, a.ID, "b"))

	ok, err := svc.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, svc.Unfollow(ctx, a.ID, b.ID), utils.ErrNotFound)
}

func TestFollowedAuthorIDs(t *testing.T) {
	db := newTestDB(t)
	a, b, c := mkUser(t, db, "a"), mkUser(t, db, "b"), mkUser(t, db, "c")
	svc := NewFollowService(db, 0, nil)
	ctx := context.Background()

	ids, err := svc.FollowedAuthorIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, svc.Follow(ctx, a.ID, c.ID))
	require.NoError(t, svc.Follow(ctx, a.ID, b.ID))
	ids, err = svc.FollowedAuthorIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, c.ID}, ids)

	ids, err = svc.FollowedAuthorIDs(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
