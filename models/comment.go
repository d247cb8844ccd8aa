package models

import "time"

// Comment is an append-only annotation on a post.
type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"type:varchar(36);index:idx_comment_post_created;not null" json:"post_id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_comment_post_created" json:"created_at"`
}

func (Comment) TableName() string { return "comments" }
