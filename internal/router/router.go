package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sekolahku/siswa-api/internal/config"
	"github.com/sekolahku/siswa-api/internal/handler"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	StudentHandler *handler.StudentHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.StudentHandler != nil {
		// The root path serves the same listing the index page consumed.
		app.Get("/", deps.StudentHandler.List)

		students := api.Group("/students")
		deps.StudentHandler.Register(students)
	}
}
