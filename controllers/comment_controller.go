package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/repository"
	"github.com/fitlife/fitlife/social"
	"github.com/fitlife/fitlife/utils"
)

type CommentController struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCommentController(db *gorm.DB, logger *zap.Logger) *CommentController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentController{db: db, logger: logger}
}

func (c *CommentController) thread(ctx *gin.Context, n social.Notifier) *social.CommentThread {
	dir := social.NewProfileDirectory(repository.NewProfileRepository(c.db), c.logger)
	return social.NewCommentThread(ctx.Param("id"), repository.NewPostRepository(c.db), repository.NewCommentRepository(c.db), dir, sessionOf(ctx), n, c.logger)
}

func (c *CommentController) ListComments(ctx *gin.Context) {
	t := c.thread(ctx, nil)
	defer t.Close()
	if err := t.Load(ctx.Request.Context()); err != nil {
		respondError(ctx, err, nil)
		return
	}
	items := t.Comments()
	utils.Success(ctx, gin.H{"items": items, "count": len(items)})
}

// AddComment posts a comment and returns the reloaded thread.
func (c *CommentController) AddComment(ctx *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid request payload")
		return
	}
	n := newRequestNotices(c.logger)
	t := c.thread(ctx, n)
	defer t.Close()
	if err := t.Add(ctx.Request.Context(), req.Content); err != nil {
		respondError(ctx, err, n)
		return
	}
	items := t.Comments()
	utils.Created(ctx, withNotices(gin.H{"items": items, "count": len(items)}, n))
}
