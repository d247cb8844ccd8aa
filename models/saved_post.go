package models

import "time"

// SavedPost is a bookmark of a post by a user.
type SavedPost struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_saved_post_user" json:"post_id"`
	UserID    string    `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_saved_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (SavedPost) TableName() string { return "saved_posts" }
