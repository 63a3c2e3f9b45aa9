package middleware

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/telecare/telehealth_api/logger"
)

// WebhookLimiter throttles gateway callbacks per caller and order, so a retry storm for
// one order cannot starve callbacks for another.
func WebhookLimiter(perSecond int) fiber.Handler {
	if perSecond < 1 {
		perSecond = 1
	}
	return limiter.New(limiter.Config{
		Max:          perSecond,
		Expiration:   time.Second,
		KeyGenerator: WebhookKey,
		LimitReached: func(c *fiber.Ctx) error {
			logger.Log.Warn().Str("key", WebhookKey(c)).Msg("⚠️ Webhook rate limit hit")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Rate limit exceeded"})
		},
	})
}

// WebhookKey is the remote address joined with the order code in the body, when present.
func WebhookKey(c *fiber.Ctx) string {
	var body struct {
		Data struct {
			OrderCode json.Number `json:"orderCode"`
		} `json:"data"`
		OrderCode json.Number `json:"orderCode"`
	}
	order := ""
	if err := json.Unmarshal(c.Body(), &body); err == nil {
		order = body.Data.OrderCode.String()
		if order == "" {
			order = body.OrderCode.String()
		}
	}
	return fmt.Sprintf("%s|%s", c.IP(), order)
}
