package httpapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/dmitrijs2005/pontos/internal/logging"
	"github.com/dmitrijs2005/pontos/internal/server/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const localUserID = "userId"

// Authenticate resolves the bearer token to a user id stored in locals.
// Preflight requests pass through untouched.
func Authenticate(v auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		header := c.Get(common.AuthorizationHeaderName)
		if header == "" {
			return writeError(c, fiber.StatusUnauthorized, CodeUnauthorized, "missing authorization header", nil)
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return writeError(c, fiber.StatusUnauthorized, CodeUnauthorized, "invalid authorization header format", nil)
		}

		userID, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, CodeUnauthorized, "invalid or expired token", nil)
		}

		c.Locals(localUserID, userID)
		return c.Next()
	}
}

// UserID returns the authenticated caller, or "" outside Authenticate.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RateLimiter is a fixed-window per-user limiter kept in redis.
type RateLimiter struct {
	redis counter
	log   logging.Logger
}

func NewRateLimiter(client counter, log logging.Logger) *RateLimiter {
	return &RateLimiter{redis: client, log: log}
}

// Limit allows maxRequests requests per window per user. When redis is unreachable
// the request is let through.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == "" {
			return c.Next()
		}

		ctx := c.UserContext()
		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, userID)

		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			rl.log.Warn(ctx, "rate limiter unavailable", "error", err)
			return c.Next()
		}
		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Seconds())))
			return writeError(c, fiber.StatusTooManyRequests, CodeRateLimited, "too many upload sessions, try again later", nil)
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(maxRequests-int(count)))
		return c.Next()
	}
}
