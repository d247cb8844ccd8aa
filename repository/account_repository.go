package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/fitlife/fitlife/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByProvider(ctx context.Context, provider, providerID string) (*models.Account, error)
	UpdateEmail(ctx context.Context, id, email string) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository { return &accountRepository{db: db} }

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.first(ctx, "email = ? AND provider = ?", email, "email")
}

func (r *accountRepository) FindByProvider(ctx context.Context, provider, providerID string) (*models.Account, error) {
	return r.first(ctx, "provider = ? AND provider_id = ?", provider, providerID)
}

func (r *accountRepository) UpdateEmail(ctx context.Context, id, email string) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Update("email", email).Error
}

func (r *accountRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Account, error) {
	var a models.Account
	if err := r.db.WithContext(ctx).Where(query, args...).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
