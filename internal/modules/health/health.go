package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/popolling/server/internal/pkg/cron"
	pkgredis "github.com/popolling/server/internal/pkg/redis"
	"github.com/popolling/server/internal/pkg/response"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

// RegisterRoutes mounts /health. rc may be nil when Redis is not configured.
func RegisterRoutes(r gin.IRoutes, db *gorm.DB, rc *pkgredis.Client, sched *cron.Scheduler, authMW gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()

		dbOK := pingDB(ctx, db)
		body := gin.H{"database": dbOK}
		healthy := dbOK
		if rc != nil {
			redisOK := rc.Raw().Ping(ctx).Err() == nil
			body["redis"] = redisOK
			healthy = healthy && redisOK
		}

		status, code := "ok", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		body["status"] = status
		c.JSON(code, body)
	})

	r.GET("/health/cron", authMW, func(c *gin.Context) {
		response.OK(c, sched.List())
	})
}

func pingDB(ctx context.Context, db *gorm.DB) bool {
	sqlDB, err := db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}
