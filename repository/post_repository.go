package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitlife/fitlife/models"
)

// PostFilter narrows a post listing. Zero values mean "no constraint".
type PostFilter struct {
	Category  string
	AuthorID  string
	IDs       []string // nil: any id; empty non-nil: matches nothing
	OrderBy   string   // created_at (default) or title
	Ascending bool
	Limit     int
}

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
	FindOwned(ctx context.Context, id, ownerID string) (*models.Post, error)
	List(ctx context.Context, f PostFilter) ([]models.Post, error)
	UpdateOwned(ctx context.Context, id, ownerID string, fields map[string]interface{}) (int64, error)
	DeleteOwned(ctx context.Context, id, ownerID string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) FindOwned(ctx context.Context, id, ownerID string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, f PostFilter) ([]models.Post, error) {
	if f.IDs != nil && len(f.IDs) == 0 {
		return []models.Post{}, nil
	}
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.AuthorID != "" {
		q = q.Where("user_id = ?", f.AuthorID)
	}
	if f.IDs != nil {
		q = q.Where("id IN ?", f.IDs)
	}
	column := "created_at"
	if f.OrderBy == "title" {
		column = "title"
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: !f.Ascending})
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) UpdateOwned(ctx context.Context, id, ownerID string, fields map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// DeleteOwned removes the post when ownerID authored it, together with its likes, comments and bookmarks.
// A non-owner delete affects zero rows and is not an error.
func (r *postRepository) DeleteOwned(ctx context.Context, id, ownerID string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 {
			return nil
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", id).Delete(&models.SavedPost{}).Error
	})
	return affected, err
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error
	return n, err
}
