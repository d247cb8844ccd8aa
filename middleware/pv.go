package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitlife/fitlife/models"
	"github.com/fitlife/fitlife/utils"
)

// PageViewRecorder counts successful GET requests per day and path.
// Post detail reads are the content pages of this API; listings and stats are skipped.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != "GET" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		path := c.Request.URL.Path
		if !countedPath(path) {
			return
		}

		now := time.Now()
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		err := db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("page_views.count + 1"), "updated_at": now}),
		}).Create(&models.PageView{Date: day, Path: path, Count: 1}).Error
		if err != nil {
			utils.L().Debug("record page view failed", zap.String("path", path), zap.Error(err))
		}
	}
}

// countedPath matches /api/v1/posts/:id and /api/v1/profiles/:userId.
func countedPath(path string) bool {
	for _, prefix := range []string{"/api/v1/posts/", "/api/v1/profiles/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			return rest != "" && !strings.Contains(rest, "/")
		}
	}
	return false
}
