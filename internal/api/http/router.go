package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Areas          *handlers.AreasHandler
	AuthMiddleware *auth.Middleware
}

// NewPolicy builds the static route access table. Order matters: the first
// matching rule wins, and anything outside the table requires an
// authenticated caller. The login route is listed public first so no later
// rule can capture it.
func NewPolicy() *auth.Policy {
	return auth.NewPolicy(
		auth.PublicRule(fiber.MethodPost, "/login"),
		auth.PublicRule(fiber.MethodPost, "/logout"),
		auth.PublicRule(fiber.MethodPost, "/users"),
		auth.PublicRule(fiber.MethodGet, "/health/**"),
		auth.ScopeRule("*", "/admin/**", domain.RoleAdmin),
		auth.ScopeRule("*", "/client/**", domain.RoleUser),
		auth.ScopeRule(fiber.MethodGet, "/users", domain.RoleAdmin),
		auth.AuthenticatedRule(fiber.MethodGet, "/me"),
	)
}

// RegisterRoutes wires HTTP routes behind the authentication middleware and
// the policy table.
func RegisterRoutes(app *fiber.App, policy *auth.Policy, cfg RouteConfig) {
	app.Use(cfg.AuthMiddleware.Handle)
	app.Use(policy.Enforce())

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/login", cfg.Auth.Login)
	app.Post("/logout", cfg.Auth.Logout)
	app.Get("/me", cfg.Auth.Me)

	app.Post("/users", cfg.Users.Create)
	app.Get("/users", cfg.Users.List)

	app.Get("/admin/overview", cfg.Areas.AdminOverview)
	app.Get("/admin/metrics", cfg.Areas.AdminMetrics)
	app.Get("/client/profile", cfg.Areas.ClientProfile)
}
