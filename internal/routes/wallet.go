package routes

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Malick44/ZemwifiApp-sub000/internal/identity"
	"github.com/Malick44/ZemwifiApp-sub000/internal/ledger"
)

// RegisterWalletRoutes exposes the current user's balance and ledger history.
func RegisterWalletRoutes(r fiber.Router, led ledger.Ledger, idRepo identity.Repository) {
	r.Get("/wallet/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		user, err := idRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		balance, err := led.Balance(c.UserContext(), uid)
		if err != nil {
			if errors.Is(err, ledger.ErrWalletNotFound) {
				return fiber.NewError(http.StatusNotFound, "wallet not found")
			}
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"user": fiber.Map{
				"id":         user.ID,
				"phone":      user.Phone,
				"role":       user.Role,
				"created_at": user.CreatedAt,
			},
			"wallet": fiber.Map{
				"balance": balance,
				"as_of":   time.Now().UTC().Format(time.RFC3339Nano),
			},
		})
	})

	r.Get("/wallet/me/history", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		history, err := led.History(c.UserContext(), uid, limit)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		type entry struct {
			ID             string    `json:"id"`
			Delta          int64     `json:"delta"`
			Reason         string    `json:"reason"`
			IdempotencyKey string    `json:"idempotency_key"`
			CreatedAt      time.Time `json:"created_at"`
		}
		out := make([]entry, 0, len(history))
		for _, adj := range history {
			out = append(out, entry{
				ID: adj.ID, Delta: adj.Delta, Reason: adj.Reason,
				IdempotencyKey: adj.IdempotencyKey, CreatedAt: adj.CreatedAt,
			})
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"adjustments": out})
	})
}
