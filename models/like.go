package models

import "time"

// Like is a (post, user) endorsement. At most one row exists per pair.
type Like struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_like_post_user" json:"post_id"`
	UserID    string    `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_like_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Like) TableName() string { return "likes" }
