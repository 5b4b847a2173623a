package app

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"

	"labelprint/internal/config"
	u "labelprint/internal/infra/logging"
)

// newRateLimitStore returns Redis-backed limiter storage when Redis is
// configured and reachable, in-memory storage otherwise.
func newRateLimitStore(cfg config.Config) (store fiber.Storage) {
	store = memoryStorage.New() // safe default
	if cfg.Redis.Addr == "" {
		return store
	}

	defer func() {
		if r := recover(); r != nil {
			u.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		Database: cfg.Redis.DB,
	})
	u.Info("Using Redis for rate limiting", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return store
}

// rateLimitMiddleware limits requests per client IP.
func rateLimitMiddleware(cfg config.Config) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               cfg.RateLimit.Max,
		Expiration:        cfg.RateLimit.Interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           newRateLimitStore(cfg),
		KeyGenerator: func(c *fiber.Ctx) string {
			return "labelprint:rl:" + c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() != "/print"
		},
		LimitReached: func(c *fiber.Ctx) error {
			u.Warn("Rate limit exceeded", "ip", c.IP(), "path", c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    fiber.StatusTooManyRequests,
					"message": "Too Many Requests",
				},
			})
		},
	})
}

// RegisterMiddleware attaches global middleware to the app
func RegisterMiddleware(app *fiber.App, cfg config.Config) {
	app.Use(fiberrecover.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New())

	if cfg.RateLimit.Max > 0 {
		app.Use(rateLimitMiddleware(cfg))
	}

	app.Use(func(c *fiber.Ctx) error {
		requestID := c.GetRespHeader(fiber.HeaderXRequestID)
		u.Info("Incoming request", "method", c.Method(), "path", c.Path(), "ip", c.IP(), "request_id", requestID)
		return c.Next()
	})
}
