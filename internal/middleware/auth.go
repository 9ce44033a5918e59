package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/foodorder/internal/identity"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/services"
)

const profileContextKey = "currentProfile"

// AuthMiddleware verifies the bearer token and loads the caller's profile, provisioning it
// on first contact.
func AuthMiddleware(verifier identity.Verifier, profiles *services.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		ident, err := verifier.Verify(c.UserContext(), strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
			}
			return fmt.Errorf("verify token: %w", err)
		}

		profile, err := profiles.GetOrCreate(c.UserContext(), ident)
		if err != nil {
			return err
		}

		c.Locals(profileContextKey, profile)
		return c.Next()
	}
}

// AdminOnly rejects callers whose profile role is not admin. It must run after AuthMiddleware.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, ok := GetCurrentProfile(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		if !profile.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

// GetCurrentProfile extracts the authenticated profile from context.
func GetCurrentProfile(c *fiber.Ctx) (*models.Profile, bool) {
	profile, ok := c.Locals(profileContextKey).(*models.Profile)
	if !ok || profile == nil {
		return nil, false
	}
	return profile, true
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	profile, ok := GetCurrentProfile(c)
	if !ok {
		return uuid.Nil, false
	}
	return profile.ID, true
}
