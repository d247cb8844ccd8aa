package models

import "time"

// Post categories accepted by the service.
const (
	CategoryFitness   = "fitness"
	CategoryNutrition = "nutrition"
	CategoryLifestyle = "lifestyle"
	CategoryOther     = "other"
)

// Categories lists every valid post category.
var Categories = []string{CategoryFitness, CategoryNutrition, CategoryLifestyle, CategoryOther}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Post is a user-authored content item. Only its author may update or delete it.
type Post struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Category  string    `gorm:"size:32;index;not null" json:"category"`
	ImageURL  *string   `gorm:"size:1024" json:"image_url"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Post) TableName() string { return "posts" }
