package httpapi

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/dmitrijs2005/pontos/internal/server/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Deps is everything the router needs. Limiter may be nil.
type Deps struct {
	Handler     *Handler
	Verifier    auth.Verifier
	Limiter     *RateLimiter
	InitPerHour int
	Checks      map[string]Check
	AccessLog   io.Writer
}

// NewApp builds the fiber application with all routes registered.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		BodyLimit:             1 << 20,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if d.AccessLog != nil {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
			Output: d.AccessLog,
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Client-Info,Apikey",
	}))

	app.Get("/health", health(d.Checks))

	authn := Authenticate(d.Verifier)

	api := app.Group("/api", authn)
	initUpload := []fiber.Handler{d.Handler.InitUpload}
	if d.Limiter != nil && d.InitPerHour > 0 {
		initUpload = append([]fiber.Handler{d.Limiter.Limit("init-upload", d.InitPerHour, time.Hour)}, initUpload...)
	}
	api.Post("/ponto-audios/init-upload", initUpload...)
	api.Post("/submissions", d.Handler.CreateSubmission)

	fn := app.Group("/functions/v1", authn)
	fn.Options("/ponto-audio-complete-upload", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	fn.Post("/ponto-audio-complete-upload", d.Handler.CompleteUpload)

	return app
}

func health(checks map[string]Check) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = fiber.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != fiber.StatusOK {
			state = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    state,
			"checks":    results,
			"max_bytes": common.MaxAudioSizeBytes,
		})
	}
}
