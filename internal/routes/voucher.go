package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Malick44/ZemwifiApp-sub000/internal/voucher"
)

// RegisterVoucherRoutes wires voucher redemption and listing endpoints.
func RegisterVoucherRoutes(r fiber.Router, h *voucher.Handler) {
	r.Get("/vouchers", h.ListMine)
	r.Post("/vouchers/redeem", h.Redeem)
}
