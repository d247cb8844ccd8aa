package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/repository"
	"github.com/fitlife/fitlife/social"
	"github.com/fitlife/fitlife/utils"
)

type LikeController struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewLikeController(db *gorm.DB, logger *zap.Logger) *LikeController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LikeController{db: db, logger: logger}
}

func (l *LikeController) state(ctx *gin.Context, n social.Notifier) *social.LikeState {
	return social.NewLikeState(ctx.Param("id"), repository.NewPostRepository(l.db), repository.NewLikeRepository(l.db), sessionOf(ctx), n, l.logger)
}

// GetLikes returns the like count and whether the viewer liked the post.
func (l *LikeController) GetLikes(ctx *gin.Context) {
	s := l.state(ctx, nil)
	defer s.Close()
	if err := s.Load(ctx.Request.Context()); err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.Success(ctx, gin.H{"likes": s.Snapshot()})
}

// ToggleLike flips the viewer's like after loading the current state.
func (l *LikeController) ToggleLike(ctx *gin.Context) {
	n := newRequestNotices(l.logger)
	s := l.state(ctx, n)
	defer s.Close()
	if _, signedIn := getUserID(ctx); signedIn {
		if err := s.Load(ctx.Request.Context()); err != nil {
			respondError(ctx, err, n)
			return
		}
	}
	snap, err := s.Toggle(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, n)
		return
	}
	utils.Success(ctx, withNotices(gin.H{"likes": snap}, n))
}
