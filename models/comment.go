package models

import "time"

// Comment represents a reply to a post. Comments are never edited and only
// disappear together with their post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime;<-:create" json:"created_at"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
}
