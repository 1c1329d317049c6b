package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// keyedRateLimit counts requests per key in Redis over a one minute window.
// Fails open when Redis is absent or unreachable.
func keyedRateLimit(cache *redis.Client, maxPerMin int, keyFor func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		key := keyFor(c)
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}

// LoginRateLimit limits login attempts per phone, falling back to client IP.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return keyedRateLimit(cache, maxPerMin, func(c *fiber.Ctx) string {
		var req struct {
			Phone string `json:"phone"`
		}
		_ = c.BodyParser(&req)
		phone := strings.TrimSpace(req.Phone)
		if phone == "" {
			phone = c.IP()
		}
		return "rl:login:" + phone
	})
}

// CashInRateLimit caps how many cash-in requests a host can open per minute.
func CashInRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return keyedRateLimit(cache, maxPerMin, func(c *fiber.Ctx) string {
		hostID, _ := c.Locals("user_id").(string)
		if hostID == "" {
			hostID = c.IP()
		}
		return "rl:cashin:" + hostID
	})
}
