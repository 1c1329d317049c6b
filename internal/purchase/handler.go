package purchase

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Malick44/ZemwifiApp-sub000/internal/catalog"
	"github.com/Malick44/ZemwifiApp-sub000/internal/ledger"
)

// Handler exposes purchase HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a purchase handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type processRequest struct {
	HotspotID      string `json:"hotspot_id"`
	PlanID         string `json:"plan_id"`
	Provider       string `json:"provider"`
	IdempotencyKey string `json:"idempotency_key"`
}

type purchaseResponse struct {
	ID            string     `json:"id"`
	HotspotID     string     `json:"hotspot_id"`
	PlanID        string     `json:"plan_id"`
	Amount        int64      `json:"amount"`
	Provider      string     `json:"provider"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	VoucherID     string     `json:"voucher_id,omitempty"`
	VoucherCode   string     `json:"voucher_code,omitempty"`
	ExpiresAt     *time.Time `json:"voucher_expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Process executes a buy request for the authenticated user.
func (h *Handler) Process(c *fiber.Ctx) error {
	var req processRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	userID, _ := c.Locals("user_id").(string)

	res, err := h.service.Process(c.UserContext(), ProcessInput{
		UserID:         userID,
		HotspotID:      req.HotspotID,
		PlanID:         req.PlanID,
		Provider:       req.Provider,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return c.Status(http.StatusPaymentRequired).JSON(fiber.Map{
				"error":    "insufficient funds",
				"purchase": toResponse(res),
			})
		case errors.Is(err, ErrProviderDeclined):
			return c.Status(http.StatusPaymentRequired).JSON(fiber.Map{
				"error":    "provider declined",
				"purchase": toResponse(res),
			})
		case errors.Is(err, ErrHotspotUnavailable):
			return fiber.NewError(http.StatusConflict, "hotspot unavailable")
		case errors.Is(err, catalog.ErrHotspotNotFound), errors.Is(err, catalog.ErrPlanNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(toResponse(res))
}

// Get returns a purchase with its voucher, when confirmed.
func (h *Handler) Get(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	res, err := h.service.Get(c.UserContext(), userID, c.Params("purchaseId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "purchase not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(res))
}

// List returns the authenticated user's purchase history.
func (h *Handler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	purchases, err := h.service.ListByUser(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, toResponse(Result{Purchase: p}))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"purchases": out})
}

func toResponse(res Result) purchaseResponse {
	p := res.Purchase
	out := purchaseResponse{
		ID:            p.ID,
		HotspotID:     p.HotspotID,
		PlanID:        p.PlanID,
		Amount:        p.Amount,
		Provider:      p.Provider,
		Status:        p.Status,
		FailureReason: p.FailureReason,
		VoucherID:     p.VoucherID,
		CreatedAt:     p.CreatedAt,
	}
	if res.Voucher.ID != "" {
		out.VoucherCode = res.Voucher.Code
		expires := res.Voucher.ExpiresAt
		out.ExpiresAt = &expires
	}
	return out
}
