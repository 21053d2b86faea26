package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "pagemetry/api/v1"
	"pagemetry/internal/config"
	"pagemetry/internal/http"
	"pagemetry/internal/http/middleware"
)

// publicCORSConfig is the permissive CORS setup shared by the public
// ingestion endpoints, which receive cross-origin requests from tracked sites.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Rate limiting only in production; in development and test it would
	// interfere with tooling and test runs.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// 70/min per IP handles legitimate tracking traffic while capping abuse.
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	dbManager := srv.GetDBManager()
	logger := srv.GetLogger()

	// Analytics endpoints never run without a validated client scope.
	analyticsConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{
			middleware.RequireClientKey(dbManager, logger),
		},
	}

	// === HEALTH ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === PUBLIC INGESTION API ===
	srv.Post("/x/api/v1/pages", v1.CreatePagePublicAPIHandler, publicAPIConfig)
	srv.Options("/x/api/v1/pages", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)

	// === ANALYTICS API ===
	srv.Get("/api/pages", http.PagesIndexAction, analyticsConfig)
	srv.Get("/api/pages/analytics", http.PagesAnalyticsAction, analyticsConfig)
	srv.Get("/api/pages/overview", http.PagesOverviewAction, analyticsConfig)

	// === USER API ===
	srv.Get("/api/users/check", http.UsersCheckAction)
	srv.Get("/api/users", http.UsersIndexAction)
	srv.Get("/api/users/:id", http.UsersShowAction)
	srv.Post("/api/users/client", http.UsersCreateClientAction)
	srv.Post("/api/users/:id", http.UsersUpdateAction)
	srv.Delete("/api/users/:id", http.UsersDeleteAction)
}
