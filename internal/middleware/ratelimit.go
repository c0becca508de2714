package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimit caps requests per client IP per minute using a Redis counter.
// It is a no-op without Redis or with a non-positive limit and fails open on
// cache errors.
func RateLimit(cache *redis.Client, scope string, maxPerMin int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || maxPerMin <= 0 {
			return c.Next()
		}
		ctx := c.UserContext()
		key := "rl:" + scope + ":" + c.IP()
		var (
			incr *redis.IntCmd
			ttl  *redis.DurationCmd
		)
		_, err := cache.TxPipelined(ctx, func(p redis.Pipeliner) error {
			incr = p.Incr(ctx, key)
			ttl = p.TTL(ctx, key)
			return nil
		})
		if err != nil {
			return c.Next()
		}
		// A counter without a TTL would never reset, so repair it here even
		// if it was left behind by an earlier failed EXPIRE.
		if ttl.Val() < 0 {
			if err := cache.Expire(ctx, key, time.Minute).Err(); err != nil {
				cache.Del(ctx, key)
				return c.Next()
			}
		}
		if incr.Val() > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
