package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/repository"
	"github.com/fitlife/fitlife/social"
	"github.com/fitlife/fitlife/utils"
)

type DashboardController struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewDashboardController(db *gorm.DB, logger *zap.Logger) *DashboardController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardController{db: db, logger: logger}
}

// GetDashboard returns the viewer's posts, liked posts and saved posts.
func (d *DashboardController) GetDashboard(ctx *gin.Context) {
	n := newRequestNotices(d.logger)
	r := social.NewDashboardReconciler(
		repository.NewPostRepository(d.db),
		repository.NewLikeRepository(d.db),
		social.NewProfileDirectory(repository.NewProfileRepository(d.db), d.logger),
		sessionOf(ctx), n, nil, d.logger,
	)
	dash, err := r.Load(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, n)
		return
	}
	utils.Success(ctx, withNotices(gin.H{"dashboard": dash}, n))
}
