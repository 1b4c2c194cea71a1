package middleware

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"vidora_backend/pkg/ratelimit"
	"vidora_backend/pkg/utils/jwt"
)

var limiter *ratelimit.Limiter

// InitRateLimiter Redis varsa paylaşılan sayaç, yoksa süreç-içi fallback kurar.
func InitRateLimiter(redisURL string) {
	if redisURL != "" {
		store, err := ratelimit.NewRedisStore(redisURL)
		if err == nil {
			limiter = ratelimit.NewLimiter(store)
			log.Println("Rate limiter using Redis store")
			return
		}
		log.Printf("Could not connect to Redis (%v), falling back to in-memory rate limiting", err)
	} else {
		log.Println("REDIS_URL not set, rate limits are per-instance only")
	}
	limiter = ratelimit.NewLimiter(ratelimit.NewMemoryStore())
}

// identity kimliği belirler: giriş yapmış kullanıcı id'si, yoksa istemci IP
func identity(c *fiber.Ctx) string {
	if claims, ok := c.Locals("user").(*jwt.Claims); ok {
		return fmt.Sprintf("user:%d", claims.UserID)
	}
	return "ip:" + c.IP()
}

// RateLimit verilen bucket için istek bütçesini uygular
func RateLimit(bucket ratelimit.Bucket) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := limiter.Check(c.Context(), identity(c), bucket)
		if err != nil {
			// Sayaç deposuna ulaşılamıyorsa isteği engelleme
			log.Printf("Rate limit check failed: %v", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

		if !result.Allowed {
			retryAfter := result.RetryAfter(time.Now())
			c.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests",
				"message":     "Please slow down and try again later",
				"retry_after": retryAfter,
			})
		}

		return c.Next()
	}
}
