package models

import "time"

// Profile is the public identity record of one account.
type Profile struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	Username  *string   `gorm:"size:64;index" json:"username"`
	FullName  *string   `gorm:"size:128" json:"full_name"`
	Bio       *string   `gorm:"type:text" json:"bio"`
	AvatarURL *string   `gorm:"size:1024" json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
