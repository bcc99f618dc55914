package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// FollowService manages directed follow edges between users.
//
// Following is idempotent: re-following is a silent no-op. Unfollowing an
// edge that does not exist is reported as utils.ErrNotFound.
type FollowService struct {
	store
	events utils.EventPublisher
}

// NewFollowService creates a FollowService; events may be nil.
func NewFollowService(db *gorm.DB, timeout time.Duration, events utils.EventPublisher) *FollowService {
	if events == nil {
		events = utils.NopPublisher{}
	}
	return &FollowService{store: newStore(db, timeout), events: events}
}

// Follow makes followerID receive targetID's posts.
func (s *FollowService) Follow(ctx context.Context, followerID, targetID uint) error {
	if followerID == targetID {
		return fmt.Errorf("%w: cannot follow yourself", utils.ErrInvalidOperation)
	}
	db, cancel := s.bound(ctx)
	defer cancel()

	if err := userExists(db, targetID, "author"); err != nil {
		return err
	}
	return s.insertEdge(ctx, db, followerID, targetID)
}

func userExists(db *gorm.DB, id uint, role string) error {
	var u models.User
	if err := db.Select("id").First(&u, id).Error; err != nil {
		return storeErr(err, fmt.Sprintf("%s %d", role, id))
	}
	return nil
}

// FollowByHandle resolves the target by username and follows it.
func (s *FollowService) FollowByHandle(ctx context.Context, followerID uint, handle string) error {
	db, cancel := s.bound(ctx)
	defer cancel()

	target, err := s.userByHandle(db, handle)
	if err != nil {
		return err
	}
	if target.ID == followerID {
		return fmt.Errorf("%w: cannot follow yourself", utils.ErrInvalidOperation)
	}
	return s.insertEdge(ctx, db, followerID, target.ID)
}

func (s *FollowService) insertEdge(ctx context.Context, db *gorm.DB, followerID, targetID uint) error {
	if err := userExists(db, followerID, "follower"); err != nil {
		return err
	}
	// the unique (user_id, author_id) index turns a duplicate into a no-op
	res := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{UserID: followerID, AuthorID: targetID})
	if res.Error != nil {
		return storeErr(res.Error, "create follow")
	}
	if res.RowsAffected > 0 {
		utils.Sugar.Infow("follow created", "user_id", followerID, "author_id", targetID)
		utils.PublishAsync(ctx, s.events, utils.SubjectFollowCreated, utils.FollowEvent{UserID: followerID, AuthorID: targetID})
	}
	return nil
}

// Unfollow removes the edge followerID -> targetID.
func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID uint) error {
	db, cancel := s.bound(ctx)
	defer cancel()
	return s.deleteEdge(ctx, db, followerID, targetID)
}

// UnfollowByHandle resolves the target by username and unfollows it.
func (s *FollowService) UnfollowByHandle(ctx context.Context, followerID uint, handle string) error {
	db, cancel := s.bound(ctx)
	defer cancel()

	target, err := s.userByHandle(db, handle)
	if err != nil {
		return err
	}
	return s.deleteEdge(ctx, db, followerID, target.ID)
}

func (s *FollowService) deleteEdge(ctx context.Context, db *gorm.DB, followerID, targetID uint) error {
	res := db.Where("user_id = ? AND author_id = ?", followerID, targetID).Delete(&models.Follow{})
	if res.Error != nil {
		return storeErr(res.Error, "delete follow")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d does not follow %d: %w", followerID, targetID, utils.ErrNotFound)
	}
	utils.Sugar.Infow("follow deleted", "user_id", followerID, "author_id", targetID)
	utils.PublishAsync(ctx, s.events, utils.SubjectFollowDeleted, utils.FollowEvent{UserID: followerID, AuthorID: targetID})
	return nil
}

// IsFollowing reports whether the edge followerID -> targetID exists.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID uint) (bool, error) {
	db, cancel := s.bound(ctx)
	defer cancel()
	return isFollowing(db, followerID, targetID)
}

func isFollowing(db *gorm.DB, followerID, targetID uint) (bool, error) {
	var n int64
	if err := db.Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", followerID, targetID).
		Count(&n).Error; err != nil {
		return false, storeErr(err, "check follow")
	}
	return n > 0, nil
}

// FollowedAuthorIDs returns the authors followerID follows, ascending.
// An unknown follower simply follows nobody.
func (s *FollowService) FollowedAuthorIDs(ctx context.Context, followerID uint) ([]uint, error) {
	db, cancel := s.bound(ctx)
	defer cancel()

	ids := []uint{}
	if err := db.Model(&models.Follow{}).
		Where("user_id = ?", followerID).
		Order("author_id").
		Pluck("author_id", &ids).Error; err != nil {
		return nil, storeErr(err, "list followed authors")
	}
	return ids, nil
}
