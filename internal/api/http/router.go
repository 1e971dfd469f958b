package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/mentor-portal/internal/api/http/handlers"
	"github.com/spec-kit/mentor-portal/internal/auth"
	"github.com/spec-kit/mentor-portal/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Auth            *handlers.AuthHandler
	Dashboard       *handlers.DashboardHandler
	Profile         *handlers.ProfileHandler
	GuardMiddleware *auth.GuardMiddleware
	Metrics         *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	app.Get("/login", cfg.Auth.LoginView)
	app.Post("/login", cfg.Auth.Login)
	app.Get("/register", cfg.Auth.RegisterView)
	app.Post("/register", cfg.Auth.Register)
	app.Post("/logout", cfg.Auth.Logout)
	app.Get("/session", cfg.Auth.Session)

	guard := cfg.GuardMiddleware.Handle
	app.Get("/dashboard", guard, cfg.Dashboard.Show)
	app.Get("/profile", guard, cfg.Profile.Show)
	app.Put("/profile", guard, cfg.Profile.Update)
}
