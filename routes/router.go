package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/config"
	"github.com/fitlife/fitlife/controllers"
	"github.com/fitlife/fitlife/middleware"
	"github.com/fitlife/fitlife/storage"
	"github.com/fitlife/fitlife/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store storage.BlobStore) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.RegisterValidators()

	r := gin.New()
	// access log and panics go to their own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedExtensions([]string{".png", ".jpg", ".jpeg", ".gif", ".webp"})))
	r.Use(middleware.PageViewRecorder(db))

	r.Static(cfg.StoragePublicBase, cfg.StorageRoot)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	logger := utils.L()
	authController := controllers.NewAuthController(db, logger)
	postController := controllers.NewPostController(db, logger)
	likeController := controllers.NewLikeController(db, logger)
	commentController := controllers.NewCommentController(db, logger)
	dashboardController := controllers.NewDashboardController(db, logger)
	profileController := controllers.NewProfileController(db, logger)
	uploadController := controllers.NewUploadController(store, cfg.UploadMaxMB, logger)
	statsController := controllers.NewStatsController(db, logger)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	public := api.Group("")
	public.Use(middleware.OptionalAuth())
	public.GET("/posts", postController.ListPosts)
	public.GET("/posts/:id", postController.GetPost)
	public.GET("/posts/:id/likes", likeController.GetLikes)
	public.GET("/posts/:id/comments", commentController.ListComments)
	public.GET("/profiles/:userId", profileController.GetPublicProfile)

	// anonymous callers get a sign-in notice instead of a bare 401
	interactive := api.Group("")
	interactive.Use(middleware.OptionalAuth(), middleware.RateLimitMiddleware())
	interactive.POST("/posts/:id/likes/toggle", likeController.ToggleLike)
	interactive.POST("/posts/:id/comments", commentController.AddComment)

	api.GET("/stats", statsController.GetStats)
	api.GET("/posts/:id/stats", statsController.GetPostStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/posts", postController.CreatePost)
	protected.GET("/posts/:id/edit", postController.EditPost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.GET("/dashboard", dashboardController.GetDashboard)
	protected.GET("/profile", profileController.GetMyProfile)
	protected.PATCH("/profile", profileController.UpdateMyProfile)
	protected.POST("/upload/:bucket", uploadController.Upload)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
