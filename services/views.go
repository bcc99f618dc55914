package services

import (
	"strings"
	"time"

	"github.com/cppla/yatube/models"
)

// PostView is the read model handed to the HTTP layer.
type PostView struct {
	ID           uint      `json:"id"`
	Text         string    `json:"text"`
	AuthorID     uint      `json:"author_id"`
	AuthorHandle string    `json:"author"`
	GroupSlug    *string   `json:"group,omitempty"`
	Image        string    `json:"image,omitempty"`
	CreatedAt    time.Time `json:"pub_date"`
}

// NewPostView expects Author and Group to be loaded.
func NewPostView(p models.Post) PostView {
	v := PostView{
		ID:           p.ID,
		Text:         p.Text,
		AuthorID:     p.AuthorID,
		AuthorHandle: p.Author.Username,
		Image:        p.Image,
		CreatedAt:    p.CreatedAt,
	}
	if p.Group != nil {
		slug := p.Group.Slug
		v.GroupSlug = &slug
	}
	return v
}

// CommentView is a comment with its author's handle.
type CommentView struct {
	ID           uint      `json:"id"`
	PostID       uint      `json:"post_id"`
	AuthorHandle string    `json:"author"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created"`
}

func newCommentView(c models.Comment) CommentView {
	return CommentView{
		ID:           c.ID,
		PostID:       c.PostID,
		AuthorHandle: c.Author.Username,
		Text:         c.Text,
		CreatedAt:    c.CreatedAt,
	}
}

// AuthorView is the public part of a user.
type AuthorView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// NewAuthorView drops private fields.
func NewAuthorView(u models.User) AuthorView {
	return AuthorView{
		ID:       u.ID,
		Username: u.Username,
		FullName: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}

// ProfileView heads an author's timeline.
type ProfileView struct {
	Author         AuthorView `json:"author"`
	PostsCount     int64      `json:"posts_count"`
	FollowersCount int64      `json:"followers_count"`
	FollowingCount int64      `json:"following_count"`
	// Following reports whether the viewer follows Author; false for anonymous viewers.
	Following bool `json:"following"`
}
