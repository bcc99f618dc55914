package models

import "time"

// PageView is a per-day hit counter for a public page such as a profile or
// group timeline. (Date, Path) is unique so hits are upserted.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"uniqueIndex:idx_pv_date_path,priority:1;type:date;not null" json:"date"`
	Path      string    `gorm:"index;uniqueIndex:idx_pv_date_path,priority:2;size:255;not null" json:"path"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name independent of naming strategy.
func (PageView) TableName() string { return "page_views" }
