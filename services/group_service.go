package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]{1,200}$`)

// GroupInput describes a new group.
type GroupInput struct {
	Title       string
	Slug        string
	Description string
}

// GroupService manages topic groups.
type GroupService struct {
	store
}

func NewGroupService(db *gorm.DB, timeout time.Duration) *GroupService {
	return &GroupService{store: newStore(db, timeout)}
}

// CreateGroup stores a group with a unique slug.
func (s *GroupService) CreateGroup(ctx context.Context, in GroupInput) (models.Group, error) {
	in.Title = utils.Sanitize(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Description = utils.Sanitize(in.Description)
	if in.Title == "" || len(in.Title) > 200 {
		return models.Group{}, fmt.Errorf("%w: title must be 1-200 characters", utils.ErrInvalidArgument)
	}
	if !slugPattern.MatchString(in.Slug) {
		return models.Group{}, fmt.Errorf("%w: invalid slug %q", utils.ErrInvalidArgument, in.Slug)
	}

	db, cancel := s.bound(ctx)
	defer cancel()

	var n int64
	if err := db.Model(&models.Group{}).Where("slug = ?", in.Slug).Count(&n).Error; err != nil {
		return models.Group{}, storeErr(err, "check slug")
	}
	if n > 0 {
		return models.Group{}, fmt.Errorf("%w: slug %q already taken", utils.ErrInvalidOperation, in.Slug)
	}
	group := models.Group{Title: in.Title, Slug: in.Slug, Description: in.Description}
	if err := db.Create(&group).Error; err != nil {
		return models.Group{}, storeErr(err, "create group")
	}
	return group, nil
}

// ListGroups returns every group ordered by title.
func (s *GroupService) ListGroups(ctx context.Context) ([]models.Group, error) {
	db, cancel := s.bound(ctx)
	defer cancel()

	groups := []models.Group{}
	if err := db.Order("title").Order("id").Find(&groups).Error; err != nil {
		return nil, storeErr(err, "list groups")
	}
	return groups, nil
}

// GetGroup looks a group up by slug.
func (s *GroupService) GetGroup(ctx context.Context, slug string) (models.Group, error) {
	db, cancel := s.bound(ctx)
	defer cancel()

	var g models.Group
	if err := db.Where("slug = ?", slug).First(&g).Error; err != nil {
		return models.Group{}, storeErr(err, "group "+slug)
	}
	return g, nil
}

// DeleteGroup removes a group. Its posts survive without a group.
func (s *GroupService) DeleteGroup(ctx context.Context, slug string) error {
	db, cancel := s.bound(ctx)
	defer cancel()

	var g models.Group
	if err := db.Where("slug = ?", slug).First(&g).Error; err != nil {
		return storeErr(err, "group "+slug)
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("group_id = ?", g.ID).
			Update("group_id", gorm.Expr("NULL")).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, g.ID).Error
	})
	if err != nil {
		return storeErr(err, "delete group")
	}
	utils.Sugar.Infow("group deleted", "slug", slug)
	return nil
}
