package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/repository"
	"github.com/fitlife/fitlife/social"
	"github.com/fitlife/fitlife/utils"
)

// PostController serves the post feed, post detail and authoring endpoints.
type PostController struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPostController(db *gorm.DB, logger *zap.Logger) *PostController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostController{db: db, logger: logger}
}

func (p *PostController) aggregator() *social.PostAggregator {
	return social.NewPostAggregator(repository.NewPostRepository(p.db), social.NewProfileDirectory(repository.NewProfileRepository(p.db), p.logger), p.logger)
}

// ListPosts returns the feed. Query: category, sort (created_at|title|likes), search, limit.
func (p *PostController) ListPosts(ctx *gin.Context) {
	q := social.PostQuery{
		Category: strings.TrimSpace(ctx.Query("category")),
		Sort:     strings.TrimSpace(ctx.DefaultQuery("sort", social.SortNewest)),
		Search:   ctx.Query("search"),
		AuthorID: strings.TrimSpace(ctx.Query("author")),
		Limit:    parseLimit(ctx.Query("limit")),
	}
	switch q.Sort {
	case social.SortNewest, social.SortTitle, social.SortLikes:
	default:
		utils.Error(ctx, http.StatusBadRequest, 40021, "unsupported sort")
		return
	}
	cards, err := p.aggregator().Fetch(ctx.Request.Context(), q)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.Success(ctx, gin.H{"items": cards, "count": len(cards)})
}

// GetPost returns one post with its author, served from cache when possible.
func (p *PostController) GetPost(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.Param("id"))
	key := utils.CacheKeyPost + id
	var card social.PostCard
	if utils.CacheGetJSON(ctx.Request.Context(), key, &card) {
		utils.Success(ctx, gin.H{"post": card})
		return
	}
	card, err := p.aggregator().Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), key, card, 0)
	utils.Success(ctx, gin.H{"post": card})
}

func (p *PostController) publisher(ctx *gin.Context, n *requestNotices) *social.Publisher {
	return social.NewPublisher(repository.NewPostRepository(p.db), sessionOf(ctx), n, p.logger)
}

func (p *PostController) CreatePost(ctx *gin.Context) {
	var in social.PostInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	n := newRequestNotices(p.logger)
	post, err := p.publisher(ctx, n).Create(ctx.Request.Context(), in)
	if err != nil {
		respondError(ctx, err, n)
		return
	}
	utils.Created(ctx, withNotices(gin.H{"post": post}, n))
}

// EditPost loads one of the viewer's posts for the edit form.
func (p *PostController) EditPost(ctx *gin.Context) {
	post, err := p.publisher(ctx, newRequestNotices(p.logger)).GetOwned(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

func (p *PostController) UpdatePost(ctx *gin.Context) {
	var in social.PostInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	id := ctx.Param("id")
	n := newRequestNotices(p.logger)
	post, err := p.publisher(ctx, n).Update(ctx.Request.Context(), id, in)
	if err != nil {
		respondError(ctx, err, n)
		return
	}
	utils.CacheDelete(ctx.Request.Context(), utils.CacheKeyPost+id)
	utils.Success(ctx, withNotices(gin.H{"post": post}, n))
}

// DeletePost requires ?confirm=true; the confirmation prompt itself lives in the client.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id := ctx.Param("id")
	n := newRequestNotices(p.logger)
	confirmed := ctx.Query("confirm") == "true"
	r := social.NewDashboardReconciler(
		repository.NewPostRepository(p.db),
		repository.NewLikeRepository(p.db),
		social.NewProfileDirectory(repository.NewProfileRepository(p.db), p.logger),
		sessionOf(ctx), n,
		social.ConfirmFunc(func(context.Context, string) bool { return confirmed }),
		p.logger,
	)
	if err := r.DeletePost(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err, n)
		return
	}
	utils.CacheDelete(ctx.Request.Context(), utils.CacheKeyPost+id)
	utils.Success(ctx, withNotices(gin.H{"id": id}, n))
}
