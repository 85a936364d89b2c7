package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civic-kit/civic-issue-service/internal/api/http/handlers"
	"github.com/civic-kit/civic-issue-service/internal/auth"
	"github.com/civic-kit/civic-issue-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	WorkOrders     *handlers.WorkOrdersHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Role gates here are coarse; the fine
// rules (officer class, exact assignee) live in the services.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", auth.RequireRole(domain.RoleCitizen), cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id/assign", cfg.Tickets.Assign)
	tickets.Patch("/:id/start", cfg.Tickets.Start)
	tickets.Patch("/:id/resolve", cfg.Tickets.Resolve)

	orders := app.Group("/work-orders", cfg.AuthMiddleware.Handle)
	orders.Post("", auth.RequireOfficer(), cfg.WorkOrders.Create)
	orders.Get("", cfg.WorkOrders.List)
	orders.Get("/:id", cfg.WorkOrders.Get)
	orders.Patch("/:id/assign", auth.RequireOfficer(), cfg.WorkOrders.Assign)
	orders.Patch("/:id/accept", auth.RequireRole(domain.RoleContractor), cfg.WorkOrders.Accept)
	orders.Patch("/:id/reject", auth.RequireRole(domain.RoleContractor), cfg.WorkOrders.Reject)
	orders.Patch("/:id/en-route", auth.RequireRole(domain.RoleContractor), cfg.WorkOrders.MarkEnRoute)
	orders.Patch("/:id/on-site", auth.RequireRole(domain.RoleContractor), cfg.WorkOrders.MarkOnSite)
	orders.Patch("/:id/start", auth.RequireRole(domain.RoleContractor), cfg.WorkOrders.Start)
	orders.Patch("/:id/complete", auth.RequireRole(domain.RoleContractor), cfg.WorkOrders.Complete)
	orders.Patch("/:id/verify", auth.RequireOfficer(), cfg.WorkOrders.Verify)
	orders.Patch("/:id/close", auth.RequireOfficer(), cfg.WorkOrders.Close)
	orders.Patch("/:id/delay", auth.RequireRole(domain.RoleContractor), cfg.WorkOrders.MarkDelayed)
}
