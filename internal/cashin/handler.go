package cashin

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes cash-in HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a cash-in handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	UserPhone  string `json:"user_phone"`
	Amount     int64  `json:"amount"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type requestResponse struct {
	ID         string     `json:"id"`
	HostID     string     `json:"host_id"`
	UserID     string     `json:"user_id,omitempty"`
	UserPhone  string     `json:"user_phone"`
	Amount     int64      `json:"amount"`
	Status     string     `json:"status"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Create lets a host propose a wallet top-up after receiving cash in person.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	hostID, _ := c.Locals("user_id").(string)

	r, err := h.service.Create(c.UserContext(), hostID, req.UserPhone,
		req.Amount, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidPhone):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(r))
}

// Confirm resolves a request in the user's favor and credits their wallet.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	r, balance, err := h.service.Confirm(c.UserContext(), c.Params("requestId"), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyResolved):
			// A replayed confirm is a no-op; surface the resolved record.
			return c.Status(http.StatusOK).JSON(toResponse(r))
		case errors.Is(err, ErrExpired):
			return fiber.NewError(http.StatusGone, "cash-in request expired")
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotRecipient):
			return fiber.NewError(http.StatusForbidden, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"request": toResponse(r),
		"balance": balance,
	})
}

// Deny resolves a request against the host. No wallet effect.
func (h *Handler) Deny(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	r, err := h.service.Deny(c.UserContext(), c.Params("requestId"), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyResolved):
			return c.Status(http.StatusOK).JSON(toResponse(r))
		case errors.Is(err, ErrExpired):
			return fiber.NewError(http.StatusGone, "cash-in request expired")
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotRecipient):
			return fiber.NewError(http.StatusForbidden, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(toResponse(r))
}

// Pending lists live requests addressed to the authenticated user.
func (h *Handler) Pending(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	requests, err := h.service.PendingForUser(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]requestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, toResponse(r))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"requests": out})
}

// History lists the authenticated host's requests, including resolved ones.
func (h *Handler) History(c *fiber.Ctx) error {
	hostID, _ := c.Locals("user_id").(string)
	requests, err := h.service.ListByHost(c.UserContext(), hostID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]requestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, toResponse(r))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"requests": out})
}

func toResponse(r Request) requestResponse {
	return requestResponse{
		ID:         r.ID,
		HostID:     r.HostID,
		UserID:     r.UserID,
		UserPhone:  r.UserPhone,
		Amount:     r.Amount,
		Status:     r.Status,
		ExpiresAt:  r.ExpiresAt,
		CreatedAt:  r.CreatedAt,
		ResolvedAt: r.ResolvedAt,
	}
}
