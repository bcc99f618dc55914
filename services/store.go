// Package services holds the content store operations behind the HTTP
// controllers: posts, comments, groups, the follow graph and the personal
// feed. Every method bounds its store calls with the configured timeout and
// reports failures with the sentinel errors of the utils package.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// DefaultStoreTimeout bounds a service call when none is configured.
const DefaultStoreTimeout = 3 * time.Second

type store struct {
	db      *gorm.DB
	timeout time.Duration
}

func newStore(db *gorm.DB, timeout time.Duration) store {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return store{db: db, timeout: timeout}
}

// bound returns a session whose statements share one deadline.
func (s store) bound(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

// storeErr wraps err with what, translating record-not-found, duplicate key
// and deadline errors into the shared taxonomy.
func storeErr(err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, utils.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w: already exists", what, utils.ErrInvalidOperation)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %v", what, utils.ErrTimeout, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// pagePosts orders the posts selected by scope newest first (ties by id),
// paginates the snapshot, and loads authors and groups for the page only.
// Posts removed after the snapshot are dropped from the page.
func (s store) pagePosts(db *gorm.DB, scope func(*gorm.DB) *gorm.DB, pageIndex, pageSize int) (utils.Page[PostView], error) {
	if pageSize <= 0 {
		return utils.Paginate[PostView](nil, pageIndex, pageSize)
	}

	var keys []models.Post
	q := scope(db.Model(&models.Post{}).Select("id", "created_at"))
	if err := q.Order("created_at DESC").Order("id DESC").Find(&keys).Error; err != nil {
		return utils.Page[PostView]{}, storeErr(err, "list posts")
	}

	page, err := utils.Paginate(keys, pageIndex, pageSize)
	if err != nil {
		return utils.Page[PostView]{}, err
	}

	byID, err := s.loadPostViews(db, page.Items)
	if err != nil {
		return utils.Page[PostView]{}, err
	}
	out := utils.MapPage(page, func(p models.Post) PostView { return byID[p.ID] })
	// a post deleted between the two reads has no view; leave it out
	items := out.Items[:0]
	for _, v := range out.Items {
		if v.ID != 0 {
			items = append(items, v)
		}
	}
	out.Items = items
	return out, nil
}

func (s store) loadPostViews(db *gorm.DB, keys []models.Post) (map[uint]PostView, error) {
	out := make(map[uint]PostView, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	ids := make([]uint, len(keys))
	for i, k := range keys {
		ids[i] = k.ID
	}
	var posts []models.Post
	if err := db.Preload("Author").Preload("Group").Where("id IN ?", utils.Unique(ids)).Find(&posts).Error; err != nil {
		return nil, storeErr(err, "load posts")
	}
	for _, p := range posts {
		out[p.ID] = NewPostView(p)
	}
	return out, nil
}

func (s store) userByHandle(db *gorm.DB, handle string) (models.User, error) {
	var u models.User
	if err := db.Where("username = ?", handle).First(&u).Error; err != nil {
		return models.User{}, storeErr(err, "user "+handle)
	}
	return u, nil
}
