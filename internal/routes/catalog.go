package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Malick44/ZemwifiApp-sub000/internal/catalog"
	"github.com/Malick44/ZemwifiApp-sub000/internal/identity"
	"github.com/Malick44/ZemwifiApp-sub000/internal/middleware"
)

// RegisterCatalogRoutes wires hotspot and plan endpoints. Listing is open to
// any authenticated user; mutations are host-only.
func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler) {
	r.Get("/hotspots", h.List)
	r.Get("/hotspots/:hotspotId/plans", h.Plans)

	hostOnly := middleware.RequireRole(identity.RoleHost)
	r.Post("/hotspots", hostOnly, h.Create)
	r.Post("/hotspots/:hotspotId/plans", hostOnly, h.CreatePlan)
	r.Patch("/hotspots/:hotspotId/availability", hostOnly, h.SetAvailability)
}
