package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitMiddleware counts requests per client IP in fixed redis windows.
// It fails open when redis is unreachable.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bucket := time.Now().Unix() / int64(window.Seconds())
		key := fmt.Sprintf("rl:ops:%s:%d", c.IP(), bucket)

		ctx := c.Context()
		var incr *redis.IntCmd
		_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			incr = p.Incr(ctx, key)
			p.Expire(ctx, key, window)
			return nil
		})
		if err != nil {
			log.Warn("rate limit unavailable", zap.Error(err))
			return c.Next()
		}

		remaining := int64(limit) - incr.Val()
		c.Set("X-RateLimit-Limit", fmt.Sprint(limit))
		c.Set("X-RateLimit-Remaining", fmt.Sprint(max(remaining, 0)))
		if remaining < 0 {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}

		return c.Next()
	}
}
