package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/repository"
	"github.com/fitlife/fitlife/social"
	"github.com/fitlife/fitlife/utils"
)

type ProfileController struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewProfileController(db *gorm.DB, logger *zap.Logger) *ProfileController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileController{db: db, logger: logger}
}

func (p *ProfileController) editor(ctx *gin.Context, n social.Notifier) *social.ProfileEditor {
	return social.NewProfileEditor(repository.NewProfileRepository(p.db), sessionOf(ctx), n, p.logger)
}

// GetMyProfile returns the viewer's full profile.
func (p *ProfileController) GetMyProfile(ctx *gin.Context) {
	prof, err := p.editor(ctx, nil).Get(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.Success(ctx, gin.H{"profile": prof})
}

// UpdateMyProfile applies a partial update; omitted fields keep their value.
func (p *ProfileController) UpdateMyProfile(ctx *gin.Context) {
	var in social.ProfileInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	for _, f := range []*string{in.Username, in.FullName, in.Bio} {
		if f != nil {
			*f = utils.Sanitize(*f)
		}
	}
	n := newRequestNotices(p.logger)
	prof, err := p.editor(ctx, n).Update(ctx.Request.Context(), in)
	if err != nil {
		respondError(ctx, err, n)
		return
	}
	// author names are embedded in cached post details
	utils.CacheDelete(ctx.Request.Context(), utils.CacheKeyProfile+prof.UserID)
	utils.InvalidateByPrefix(ctx.Request.Context(), utils.CacheKeyPost)
	utils.Success(ctx, withNotices(gin.H{"profile": prof}, n))
}

// GetPublicProfile returns the summary shown next to a user's content.
// Users without a profile get the anonymous placeholder.
func (p *ProfileController) GetPublicProfile(ctx *gin.Context) {
	userID := strings.TrimSpace(ctx.Param("userId"))
	key := utils.CacheKeyProfile + userID
	var summary social.ProfileSummary
	if utils.CacheGetJSON(ctx.Request.Context(), key, &summary) {
		utils.Success(ctx, gin.H{"profile": summary})
		return
	}
	found := social.NewProfileDirectory(repository.NewProfileRepository(p.db), p.logger).
		Lookup(ctx.Request.Context(), []string{userID})
	summary, ok := found[userID]
	if !ok {
		utils.Success(ctx, gin.H{"profile": social.Placeholder(userID)})
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), key, summary, 0)
	utils.Success(ctx, gin.H{"profile": summary})
}
