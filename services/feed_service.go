package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/yatube/utils"
)

// FeedService assembles a viewer's personal feed: posts of every author
// the viewer follows, newest first. Nothing is cached here; each call
// reflects the follow edges and posts at the time of the call.
type FeedService struct {
	store
	follows *FollowService
}

// NewFeedService creates a FeedService reading edges through follows.
func NewFeedService(db *gorm.DB, timeout time.Duration, follows *FollowService) *FeedService {
	return &FeedService{store: newStore(db, timeout), follows: follows}
}

// BuildFeed returns page pageIndex of viewerID's feed. A viewer who follows
// nobody, or is unknown, gets an empty first page.
func (s *FeedService) BuildFeed(ctx context.Context, viewerID uint, pageIndex, pageSize int) (utils.Page[PostView], error) {
	if pageSize <= 0 {
		return utils.Paginate[PostView](nil, pageIndex, pageSize)
	}
	authorIDs, err := s.follows.FollowedAuthorIDs(ctx, viewerID)
	if err != nil {
		return utils.Page[PostView]{}, err
	}
	if len(authorIDs) == 0 {
		return utils.Paginate([]PostView{}, pageIndex, pageSize)
	}

	db, cancel := s.bound(ctx)
	defer cancel()
	return s.pagePosts(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id IN ?", authorIDs)
	}, pageIndex, pageSize)
}
