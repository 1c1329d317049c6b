package voucher

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes voucher HTTP endpoints.
type Handler struct {
	store Store
}

// NewHandler builds a voucher HTTP handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type redeemRequest struct {
	Code      string `json:"code"`
	DeviceMAC string `json:"device_mac"`
}

type voucherResponse struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	HotspotID string     `json:"hotspot_id"`
	PlanID    string     `json:"plan_id"`
	Status    Status     `json:"status"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	DeviceMAC string     `json:"device_mac,omitempty"`
}

// Redeem marks a voucher used and binds the redeeming device.
func (h *Handler) Redeem(c *fiber.Ctx) error {
	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Code == "" {
		return fiber.NewError(http.StatusBadRequest, "voucher code is required")
	}

	v, err := h.store.Redeem(c.UserContext(), req.Code, req.DeviceMAC)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "voucher not found")
		case errors.Is(err, ErrAlreadyUsed):
			return fiber.NewError(http.StatusConflict, "voucher already used")
		case errors.Is(err, ErrExpired):
			return fiber.NewError(http.StatusGone, "voucher expired")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(toResponse(v))
}

// ListMine returns the authenticated user's vouchers with computed status.
func (h *Handler) ListMine(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	vouchers, err := h.store.ListByUser(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]voucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, toResponse(v))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"vouchers": out})
}

func toResponse(v Voucher) voucherResponse {
	return voucherResponse{
		ID:        v.ID,
		Code:      v.Code,
		HotspotID: v.HotspotID,
		PlanID:    v.PlanID,
		Status:    StatusOf(v, time.Now().UTC()),
		ExpiresAt: v.ExpiresAt,
		UsedAt:    v.UsedAt,
		DeviceMAC: v.DeviceMAC,
	}
}
