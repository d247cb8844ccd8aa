package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/models"
)

type CommentRepository interface {
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
	CountByPost(ctx context.Context, postID string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository { return &commentRepository{db: db} }

// ListByPost returns the post's comments oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	var res []models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&res).Error
	return res, err
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

func (r *commentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Count(&n).Error
	return n, err
}
