package models

import "time"

// Follow is a directed edge: UserID receives AuthorID's posts in their feed.
// The composite unique index keeps at most one edge per pair.
type Follow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_follows_pair,priority:1" json:"user_id"`
	AuthorID  uint      `gorm:"not null;index;uniqueIndex:idx_follows_pair,priority:2" json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}
