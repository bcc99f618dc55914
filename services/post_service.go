package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// PostInput carries the editable fields of a post.
type PostInput struct {
	Text    string
	GroupID *uint
	Image   string
}

// PostService owns posts and their comments. Only the author may edit a
// post; the author or an admin may delete it, taking its comments along.
type PostService struct {
	store
	events utils.EventPublisher
}

// NewPostService creates a PostService; events may be nil.
func NewPostService(db *gorm.DB, timeout time.Duration, events utils.EventPublisher) *PostService {
	if events == nil {
		events = utils.NopPublisher{}
	}
	return &PostService{store: newStore(db, timeout), events: events}
}

func (s *PostService) clean(db *gorm.DB, in PostInput) (PostInput, error) {
	in.Text = utils.Sanitize(in.Text)
	if in.Text == "" {
		return in, fmt.Errorf("%w: post text cannot be empty", utils.ErrInvalidArgument)
	}
	if in.GroupID != nil {
		var g models.Group
		if err := db.Select("id").First(&g, *in.GroupID).Error; err != nil {
			return in, storeErr(err, fmt.Sprintf("group %d", *in.GroupID))
		}
	}
	return in, nil
}

// CreatePost stores a new post by authorID.
func (s *PostService) CreatePost(ctx context.Context, authorID uint, in PostInput) (PostView, error) {
	db, cancel := s.bound(ctx)
	defer cancel()

	in, err := s.clean(db, in)
	if err != nil {
		return PostView{}, err
	}
	post := models.Post{AuthorID: authorID, Text: in.Text, GroupID: in.GroupID, Image: in.Image}
	if err := db.Create(&post).Error; err != nil {
		return PostView{}, storeErr(err, "create post")
	}
	view, err := s.getPost(db, post.ID)
	if err != nil {
		return PostView{}, err
	}
	utils.PublishAsync(ctx, s.events, utils.SubjectPostCreated, utils.PostCreatedEvent{
		ID: post.ID, AuthorID: authorID, GroupID: post.GroupID, CreatedAt: post.CreatedAt,
	})
	return view, nil
}

// UpdatePost replaces text, group and image of a post owned by editorID.
// The creation timestamp is never touched.
func (s *PostService) UpdatePost(ctx context.Context, editorID, postID uint, in PostInput) (PostView, error) {
	db, cancel := s.bound(ctx)
	defer cancel()

	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		return PostView{}, storeErr(err, fmt.Sprintf("post %d", postID))
	}
	if post.AuthorID != editorID {
		return PostView{}, fmt.Errorf("%w: only the author can edit post %d", utils.ErrForbidden, postID)
	}
	in, err := s.clean(db, in)
	if err != nil {
		return PostView{}, err
	}
	if err := db.Model(&post).Select("text", "group_id", "image").Updates(models.Post{
		Text: in.Text, GroupID: in.GroupID, Image: in.Image,
	}).Error; err != nil {
		return PostView{}, storeErr(err, "update post")
	}
	return s.getPost(db, postID)
}

// DeletePost removes a post and its comments.
func (s *PostService) DeletePost(ctx context.Context, actorID, postID uint, asAdmin bool) error {
	db, cancel := s.bound(ctx)
	defer cancel()

	var post models.Post
	if err := db.Select("id", "author_id").First(&post, postID).Error; err != nil {
		return storeErr(err, fmt.Sprintf("post %d", postID))
	}
	if post.AuthorID != actorID && !asAdmin {
		return fmt.Errorf("%w: only the author can delete post %d", utils.ErrForbidden, postID)
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, postID).Error
	})
	if err != nil {
		return storeErr(err, "delete post")
	}
	utils.Sugar.Infow("post deleted", "post_id", postID, "actor_id", actorID)
	return nil
}

// GetPost returns a single post.
func (s *PostService) GetPost(ctx context.Context, postID uint) (PostView, error) {
	db, cancel := s.bound(ctx)
	defer cancel()
	return s.getPost(db, postID)
}

func (s *PostService) getPost(db *gorm.DB, postID uint) (PostView, error) {
	var post models.Post
	if err := db.Preload("Author").Preload("Group").First(&post, postID).Error; err != nil {
		return PostView{}, storeErr(err, fmt.Sprintf("post %d", postID))
	}
	return NewPostView(post), nil
}

// IndexPage lists every post, newest first.
func (s *PostService) IndexPage(ctx context.Context, pageIndex, pageSize int) (utils.Page[PostView], error) {
	db, cancel := s.bound(ctx)
	defer cancel()
	return s.pagePosts(db, func(q *gorm.DB) *gorm.DB { return q }, pageIndex, pageSize)
}

// GroupPage lists the posts filed under the group with the given slug.
func (s *PostService) GroupPage(ctx context.Context, slug string, pageIndex, pageSize int) (models.Group, utils.Page[PostView], error) {
	db, cancel := s.bound(ctx)
	defer cancel()

	var group models.Group
	if err := db.Where("slug = ?", slug).First(&group).Error; err != nil {
		return models.Group{}, utils.Page[PostView]{}, storeErr(err, "group "+slug)
	}
	page, err := s.pagePosts(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("group_id = ?", group.ID)
	}, pageIndex, pageSize)
	return group, page, err
}

// ProfilePage lists an author's posts together with follow counters.
// viewerID 0 is an anonymous viewer.
func (s *PostService) ProfilePage(ctx context.Context, viewerID uint, handle string, pageIndex, pageSize int) (ProfileView, utils.Page[PostView], error) {
	db, cancel := s.bound(ctx)
	defer cancel()

	author, err := s.userByHandle(db, handle)
	if err != nil {
		return ProfileView{}, utils.Page[PostView]{}, err
	}
	profile := ProfileView{Author: NewAuthorView(author)}
	if err := db.Model(&models.Post{}).Where("author_id = ?", author.ID).Count(&profile.PostsCount).Error; err != nil {
		return ProfileView{}, utils.Page[PostView]{}, storeErr(err, "count posts")
	}
	if err := db.Model(&models.Follow{}).Where("author_id = ?", author.ID).Count(&profile.FollowersCount).Error; err != nil {
		return ProfileView{}, utils.Page[PostView]{}, storeErr(err, "count followers")
	}
	if err := db.Model(&models.Follow{}).Where("user_id = ?", author.ID).Count(&profile.FollowingCount).Error; err != nil {
		return ProfileView{}, utils.Page[PostView]{}, storeErr(err, "count following")
	}
	if viewerID != 0 {
		if profile.Following, err = isFollowing(db, viewerID, author.ID); err != nil {
			return ProfileView{}, utils.Page[PostView]{}, err
		}
	}

	page, err := s.pagePosts(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id = ?", author.ID)
	}, pageIndex, pageSize)
	return profile, page, err
}

// AddComment stores a comment by authorID under postID.
func (s *PostService) AddComment(ctx context.Context, authorID, postID uint, text string) (CommentView, error) {
	text = utils.Sanitize(text)
	if text == "" {
		return CommentView{}, fmt.Errorf("%w: comment text cannot be empty", utils.ErrInvalidArgument)
	}
	db, cancel := s.bound(ctx)
	defer cancel()

	var post models.Post
	if err := db.Select("id").First(&post, postID).Error; err != nil {
		return CommentView{}, storeErr(err, fmt.Sprintf("post %d", postID))
	}
	comment := models.Comment{PostID: postID, AuthorID: authorID, Text: text}
	if err := db.Create(&comment).Error; err != nil {
		return CommentView{}, storeErr(err, "create comment")
	}
	if err := db.Preload("Author").First(&comment, comment.ID).Error; err != nil {
		return CommentView{}, storeErr(err, "load comment")
	}
	utils.PublishAsync(ctx, s.events, utils.SubjectCommentCreated, utils.CommentCreatedEvent{
		ID: comment.ID, PostID: postID, AuthorID: authorID,
	})
	return newCommentView(comment), nil
}

// ListComments returns the comments of a post, newest first.
func (s *PostService) ListComments(ctx context.Context, postID uint) ([]CommentView, error) {
	db, cancel := s.bound(ctx)
	defer cancel()

	var post models.Post
	if err := db.Select("id").First(&post, postID).Error; err != nil {
		return nil, storeErr(err, fmt.Sprintf("post %d", postID))
	}
	var comments []models.Comment
	if err := db.Preload("Author").Where("post_id = ?", postID).
		Order("created_at DESC").Order("id DESC").Find(&comments).Error; err != nil {
		return nil, storeErr(err, "list comments")
	}
	out := make([]CommentView, len(comments))
	for i, c := range comments {
		out[i] = newCommentView(c)
	}
	return out, nil
}
