package social

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/models"
	"github.com/fitlife/fitlife/repository"
	"github.com/fitlife/fitlife/utils"
)

// PostInput carries the editable fields of a post.
type PostInput struct {
	Title    string  `json:"title" binding:"required,max=255"`
	Content  string  `json:"content" binding:"required"`
	Category string  `json:"category" binding:"required,fitcategory"`
	ImageURL *string `json:"image_url" binding:"omitempty,max=1024"`
}

func (in PostInput) normalize() (PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(utils.Sanitize(in.Content))
	in.Category = strings.TrimSpace(in.Category)
	if in.ImageURL != nil {
		u := strings.TrimSpace(*in.ImageURL)
		if u == "" {
			in.ImageURL = nil
		} else {
			in.ImageURL = &u
		}
	}
	switch {
	case in.Title == "":
		return in, fmt.Errorf("%w: title is required", ErrValidation)
	case strings.TrimSpace(in.Content) == "":
		return in, fmt.Errorf("%w: content is required", ErrValidation)
	case !models.ValidCategory(in.Category):
		return in, fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	}
	return in, nil
}

// Publisher creates and edits the viewer's posts.
type Publisher struct {
	posts    repository.PostRepository
	session  Session
	notifier Notifier
	logger   *zap.Logger
}

func NewPublisher(posts repository.PostRepository, session Session, notifier Notifier, logger *zap.Logger) *Publisher {
	return &Publisher{posts: posts, session: session, notifier: notifier, logger: orNop(logger)}
}

func (p *Publisher) Create(ctx context.Context, in PostInput) (*models.Post, error) {
	viewer, ok := viewerOf(p.session)
	if !ok {
		signInRequired(p.notifier, "Please sign in to create a post")
		return nil, ErrNotAuthenticated
	}
	in, err := in.normalize()
	if err != nil {
		notify(p.notifier, "Missing fields", "Please fill in all required fields", SeverityError)
		return nil, err
	}
	post := &models.Post{UserID: viewer, Title: in.Title, Content: in.Content, Category: in.Category, ImageURL: in.ImageURL}
	if err := p.posts.Create(ctx, post); err != nil {
		p.logger.Warn("create post failed", zap.String("user_id", viewer), zap.Error(err))
		notify(p.notifier, "Error", "Failed to create post", SeverityError)
		return nil, fmt.Errorf("%w: create post: %v", ErrRemote, err)
	}
	notify(p.notifier, "Post created", "Your post has been published", SeverityInfo)
	return post, nil
}

// GetOwned loads a post for editing. Posts of other authors are reported as missing.
func (p *Publisher) GetOwned(ctx context.Context, id string) (*models.Post, error) {
	viewer, ok := viewerOf(p.session)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	post, err := p.posts.FindOwned(ctx, id, viewer)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: post %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get post: %v", ErrRemote, err)
	}
	return post, nil
}

func (p *Publisher) Update(ctx context.Context, id string, in PostInput) (*models.Post, error) {
	viewer, ok := viewerOf(p.session)
	if !ok {
		signInRequired(p.notifier, "Please sign in to edit posts")
		return nil, ErrNotAuthenticated
	}
	in, err := in.normalize()
	if err != nil {
		notify(p.notifier, "Missing fields", "Please fill in all required fields", SeverityError)
		return nil, err
	}
	n, err := p.posts.UpdateOwned(ctx, id, viewer, map[string]interface{}{
		"title":      in.Title,
		"content":    in.Content,
		"category":   in.Category,
		"image_url":  in.ImageURL,
		"updated_at": time.Now(),
	})
	if err != nil {
		p.logger.Warn("update post failed", zap.String("post_id", id), zap.Error(err))
		notify(p.notifier, "Error", "Failed to update post", SeverityError)
		return nil, fmt.Errorf("%w: update post: %v", ErrRemote, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: post %s", ErrNotFound, id)
	}
	notify(p.notifier, "Post updated", "Your changes have been saved", SeverityInfo)
	return p.GetOwned(ctx, id)
}
