package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/foodorder/internal/config"
	"github.com/example/foodorder/internal/identity"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/services"
	"github.com/example/foodorder/internal/utils"
)

// AuthHandler serves local email/password sign-up and login. It is only mounted when the
// server issues its own tokens.
type AuthHandler struct {
	profiles *services.ProfileService
	cfg      *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(profiles *services.ProfileService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{profiles: profiles, cfg: cfg}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// Register creates a new customer account and returns a token for it.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	profile, err := h.profiles.Register(c.UserContext(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}

	return h.respondWithToken(c, fiber.StatusCreated, profile)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	profile, err := h.profiles.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return h.respondWithToken(c, fiber.StatusOK, profile)
}

func (h *AuthHandler) respondWithToken(c *fiber.Ctx, status int, profile *models.Profile) error {
	var email string
	if profile.Email != nil {
		email = *profile.Email
	}

	token, err := identity.GenerateToken(h.cfg.JWTSecret, profile.ID, email, profile.Name, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.Status(status).JSON(fiber.Map{
		"success":    true,
		"user":       profile,
		"token":      token,
		"expires_in": int64(h.cfg.TokenExpires.Seconds()),
	})
}
