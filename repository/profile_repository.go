package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitlife/fitlife/models"
)

type ProfileRepository interface {
	FindByUserIDs(ctx context.Context, userIDs []string) ([]models.Profile, error)
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, userID string, fields map[string]interface{}) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository { return &profileRepository{db: db} }

func (r *profileRepository) FindByUserIDs(ctx context.Context, userIDs []string) ([]models.Profile, error) {
	if len(userIDs) == 0 {
		return []models.Profile{}, nil
	}
	var res []models.Profile
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&res).Error
	return res, err
}

func (r *profileRepository) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts the profile; an existing row for the same user is left as is.
func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(profile).Error
}

func (r *profileRepository) Update(ctx context.Context, userID string, fields map[string]interface{}) (int64, error) {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *profileRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Count(&n).Error
	return n, err
}
