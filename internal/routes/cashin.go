package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Malick44/ZemwifiApp-sub000/internal/cashin"
	"github.com/Malick44/ZemwifiApp-sub000/internal/identity"
	"github.com/Malick44/ZemwifiApp-sub000/internal/middleware"
)

// RegisterCashInRoutes wires the cash-in request lifecycle. Hosts open
// requests; the addressed user confirms or denies them.
func RegisterCashInRoutes(r fiber.Router, h *cashin.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/cashin")

	hostOnly := middleware.RequireRole(identity.RoleHost)
	if rateLimiter != nil {
		group.Post("/requests", hostOnly, rateLimiter, h.Create)
	} else {
		group.Post("/requests", hostOnly, h.Create)
	}
	group.Get("/requests", hostOnly, h.History)

	group.Get("/requests/pending", h.Pending)
	group.Post("/requests/:requestId/confirm", h.Confirm)
	group.Post("/requests/:requestId/deny", h.Deny)
}
