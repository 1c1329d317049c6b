package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Malick44/ZemwifiApp-sub000/internal/auth"
	"github.com/Malick44/ZemwifiApp-sub000/internal/config"
	"github.com/Malick44/ZemwifiApp-sub000/internal/identity"
)

// JWTAuth validates bearer access tokens and checks the token version so
// logged-out sessions stop verifying. Sets user_id and role locals.
func JWTAuth(cfg config.Config, repo identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseClaims(tokenStr, cfg.JWTSecret)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		sub, _ := claims["sub"].(string)
		verFloat, _ := claims["ver"].(float64)

		user, err := repo.FindByID(c.UserContext(), sub)
		if err != nil || user.TokenVersion != int(verFloat) {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals("user_id", sub)
		c.Locals("role", user.Role)
		return c.Next()
	}
}

// RequireRole gates a route group to one account role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if got, _ := c.Locals("role").(string); got != role {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
