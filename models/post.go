package models

import "time"

// Post is a text entry written by a user, optionally filed under a group.
// CreatedAt is assigned once on insert and never updated.
type Post struct {
	ID        uint      `gorm:"primaryKey;index:idx_posts_created_id,priority:2" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime;<-:create;index:idx_posts_created_id,priority:1" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	GroupID   *uint     `gorm:"index" json:"group_id"`
	Image     string    `gorm:"size:255" json:"image"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
	Group     *Group    `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Comments  []Comment `gorm:"foreignKey:PostID" json:"comments,omitempty"`
}
