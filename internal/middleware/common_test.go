package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/siswa-api/internal/middleware"
)

func TestRegisterAppliesConfiguredCORSOrigins(t *testing.T) {
	app := fiber.New()
	middleware.Register(app, middleware.Config{CORSAllowOrigins: "https://sekolah.example"})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://sekolah.example")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "https://sekolah.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRegisterDefaultsCORSOriginsToAny(t *testing.T) {
	app := fiber.New()
	middleware.Register(app, middleware.Config{})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://other.example")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRegisterAssignsCorrelationID(t *testing.T) {
	app := fiber.New()
	middleware.Register(app, middleware.Config{})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}
