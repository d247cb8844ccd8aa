package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/models"
	"github.com/fitlife/fitlife/repository"
	"github.com/fitlife/fitlife/utils"
)

// StatsController exposes aggregate counters. Failing counters degrade to 0.
type StatsController struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStatsController(db *gorm.DB, logger *zap.Logger) *StatsController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsController{db: db, logger: logger}
}

func (s *StatsController) count(name string, fn func() (int64, error)) int64 {
	n, err := fn()
	if err != nil {
		s.logger.Warn("stats counter failed", zap.String("counter", name), zap.Error(err))
		return 0
	}
	return n
}

func (s *StatsController) GetStats(ctx *gin.Context) {
	c := ctx.Request.Context()
	posts := repository.NewPostRepository(s.db)
	likes := repository.NewLikeRepository(s.db)
	comments := repository.NewCommentRepository(s.db)
	profiles := repository.NewProfileRepository(s.db)

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	views := s.count("page_views_today", func() (int64, error) {
		var n int64
		err := s.db.WithContext(c).Model(&models.PageView{}).
			Where("date >= ? AND date < ?", today, today.AddDate(0, 0, 1)).
			Select("COALESCE(SUM(count),0)").
			Scan(&n).Error
		return n, err
	})

	utils.Success(ctx, gin.H{
		"post_count":       s.count("posts", func() (int64, error) { return posts.Count(c) }),
		"like_count":       s.count("likes", func() (int64, error) { return likes.Count(c) }),
		"comment_count":    s.count("comments", func() (int64, error) { return comments.Count(c) }),
		"profile_count":    s.count("profiles", func() (int64, error) { return profiles.Count(c) }),
		"page_views_today": views,
	})
}

// GetPostStats returns page views, likes and comments for one post.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	c := ctx.Request.Context()
	id := ctx.Param("id")
	views := s.count("post_views", func() (int64, error) {
		var n int64
		err := s.db.WithContext(c).Model(&models.PageView{}).
			Where("path = ?", "/api/v1/posts/"+id).
			Select("COALESCE(SUM(count),0)").
			Scan(&n).Error
		return n, err
	})
	utils.Success(ctx, gin.H{
		"page_views":     views,
		"likes_count":    s.count("post_likes", func() (int64, error) { return repository.NewLikeRepository(s.db).CountByPost(c, id) }),
		"comments_count": s.count("post_comments", func() (int64, error) { return repository.NewCommentRepository(s.db).CountByPost(c, id) }),
	})
}
