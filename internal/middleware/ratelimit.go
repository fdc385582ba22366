package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/popolling/server/internal/pkg/response"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitWindow = time.Second

// RateLimit enforces a fixed one-second window of max requests per client IP
// for anonymous traffic. Redis failures let the request through.
func RateLimit(rdb *redis.Client, max int, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("popolling:rate_limit:%s:%d", ip, time.Now().Unix())

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			rdb.PExpire(ctx, key, rateLimitWindow+time.Second)
		}

		if count > int64(max) {
			log.Debug("rate limited", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
