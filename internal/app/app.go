package app

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"labelprint/internal/config"
	"labelprint/internal/handlers"
	"labelprint/internal/infra/command"
	"labelprint/internal/infra/lock"
	u "labelprint/internal/infra/logging"
	"labelprint/internal/labels"
)

// SetupApp creates and configures a new Fiber app instance. A nil redis
// client keeps the job lock in-process.
func SetupApp(cfg config.Config, redis *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		BodyLimit:             cfg.Server.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
				msg = e.Message
			}

			u.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	RegisterMiddleware(app, cfg)
	RegisterRoutes(app, cfg, redis)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts all route handlers to the app
func RegisterRoutes(app *fiber.App, cfg config.Config, redis *redis.Client) {
	svc := NewLabelService(cfg, redis)
	h := handlers.NewPrintHandler(svc, cfg.Server.ExposeDiagnostics)

	app.Post("/print", h.HandlePrint)
}

// NewLabelService builds the print pipeline with the external tools and the
// job lock selected by cfg.
func NewLabelService(cfg config.Config, redis *redis.Client) *labels.Service {
	var locker labels.Locker
	switch {
	case redis != nil:
		locker = lock.NewRedis(redis, cfg.Lock.Key, cfg.Lock.TTL, cfg.Lock.PollInterval)
	default:
		locker = lock.NewLocal()
		if cfg.Server.Prefork && !cfg.Label.IsolateJobs {
			u.Warn("Prefork without Redis or isolate_jobs: concurrent jobs in different processes share the data and output files")
		}
	}

	return labels.NewService(
		cfg.Label,
		cfg.Lock.WaitTimeout,
		command.NewTypst(cfg.Label.RendererBin, cfg.Label.RenderTimeout),
		command.NewLP(cfg.Label.SpoolerBin, cfg.Label.PrintTimeout),
		locker,
	)
}
