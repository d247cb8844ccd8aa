package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is an authenticated identity. Passwords are stored as bcrypt hashes only.
// Its public face is the Profile sharing the same id.
type Account struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email        string    `gorm:"size:255;index" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Provider     string    `gorm:"size:32;index:idx_account_provider" json:"provider"`
	ProviderID   string    `gorm:"size:255;index:idx_account_provider" json:"provider_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// BeforeCreate assigns an id when the caller did not.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
