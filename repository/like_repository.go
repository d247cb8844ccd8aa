package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitlife/fitlife/models"
)

type LikeRepository interface {
	CountByPost(ctx context.Context, postID string) (int64, error)
	Exists(ctx context.Context, postID, userID string) (bool, error)
	Create(ctx context.Context, postID, userID string) error
	Delete(ctx context.Context, postID, userID string) error
	ListByUser(ctx context.Context, userID string) ([]models.Like, error)
	Count(ctx context.Context) (int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

func (r *likeRepository) Exists(ctx context.Context, postID, userID string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Limit(1).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *likeRepository) Create(ctx context.Context, postID, userID string) error {
	l := &models.Like{ID: uuid.NewString(), PostID: postID, UserID: userID}
	// idempotent: the (post_id, user_id) pair is unique
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(l).Error
}

func (r *likeRepository) Delete(ctx context.Context, postID, userID string) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{}).Error
}

func (r *likeRepository) ListByUser(ctx context.Context, userID string) ([]models.Like, error) {
	var res []models.Like
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&res).Error
	return res, err
}

func (r *likeRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Count(&n).Error
	return n, err
}
