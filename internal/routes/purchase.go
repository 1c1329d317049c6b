package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Malick44/ZemwifiApp-sub000/internal/purchase"
)

// RegisterPurchaseRoutes wires voucher purchase endpoints.
func RegisterPurchaseRoutes(r fiber.Router, h *purchase.Handler) {
	r.Post("/purchases", h.Process)
	r.Get("/purchases", h.List)
	r.Get("/purchases/:purchaseId", h.Get)
}
