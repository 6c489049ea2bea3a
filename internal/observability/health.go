package observability

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a backing service /health checks on every call.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

// Health reports "ok" when every check answers, and 503 naming the ones that did not.
func Health(checks map[string]Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		results := make(map[string]string, len(checks))
		healthy := true
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				results[name] = err.Error()
				healthy = false
				continue
			}
			results[name] = "ok"
		}
		if !healthy {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "checks": results})
		}
		return c.JSON(fiber.Map{"status": "ok", "checks": results})
	}
}
