package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/foodorder/internal/middleware"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/services"
	"github.com/example/foodorder/internal/utils"
)

// ProfileHandler manages user profile and address endpoints.
type ProfileHandler struct {
	profiles  *services.ProfileService
	addresses *services.AddressService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *services.ProfileService, addresses *services.AddressService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, addresses: addresses}
}

// GetProfile returns the authenticated user's profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	profile, ok := middleware.GetCurrentProfile(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(fiber.Map{"success": true, "data": profile})
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// UpdateProfile updates the caller's name or phone.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	profile, err := h.profiles.Update(c.UserContext(), userID, services.UpdateProfileInput{Name: req.Name, Phone: req.Phone})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": profile})
}

// DeleteProfile removes the caller's own profile.
func (h *ProfileHandler) DeleteProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.profiles.Delete(c.UserContext(), userID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListUsers returns profiles for the back office.
func (h *ProfileHandler) ListUsers(c *fiber.Ctx) error {
	role := models.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		return badRequest(services.ErrInvalidRole)
	}

	pagination := utils.ParsePagination(c)
	profiles, total, err := h.profiles.List(c.UserContext(), services.ListProfilesParams{
		Search: c.Query("search"),
		Role:   role,
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       profiles,
		"pagination": pagination.Meta(total),
	})
}

type adminUpdateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Role  *string `json:"role" validate:"omitempty,oneof=admin customer"`
}

// UpdateUser lets an admin change any profile, including its role.
func (h *ProfileHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req adminUpdateProfileRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	in := services.UpdateProfileInput{Name: req.Name, Phone: req.Phone}
	if req.Role != nil {
		role := models.Role(*req.Role)
		in.Role = &role
	}

	profile, err := h.profiles.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": profile})
}

// DeleteUser lets an admin remove a profile without orders.
func (h *ProfileHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.profiles.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Address endpoints serve both /users/me/addresses and /users/admin/:user_id/addresses.

func addressOwner(c *fiber.Ctx) (uuid.UUID, error) {
	if c.Params("user_id") != "" {
		return paramID(c, "user_id")
	}
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return userID, nil
}

// ListAddresses returns the owner's addresses, default first.
func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	userID, err := addressOwner(c)
	if err != nil {
		return err
	}

	addresses, err := h.addresses.List(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": addresses})
}

type createAddressRequest struct {
	Label      string `json:"label" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code"`
	IsDefault  bool   `json:"is_default"`
}

// CreateAddress creates an address. A new default replaces the old one.
func (h *ProfileHandler) CreateAddress(c *fiber.Ctx) error {
	userID, err := addressOwner(c)
	if err != nil {
		return err
	}

	var req createAddressRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	address, err := h.addresses.Create(c.UserContext(), userID, services.AddressInput{
		Label:      req.Label,
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": address})
}

type updateAddressRequest struct {
	Label      *string `json:"label"`
	Street     *string `json:"street"`
	City       *string `json:"city"`
	PostalCode *string `json:"postal_code"`
	IsDefault  *bool   `json:"is_default"`
}

// UpdateAddress updates an address.
func (h *ProfileHandler) UpdateAddress(c *fiber.Ctx) error {
	userID, err := addressOwner(c)
	if err != nil {
		return err
	}
	addressID, err := paramID(c, "address_id")
	if err != nil {
		return err
	}

	var req updateAddressRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	address, err := h.addresses.Update(c.UserContext(), userID, addressID, services.AddressUpdate{
		Label:      req.Label,
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": address})
}

// DeleteAddress deletes an address not used by any order.
func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	userID, err := addressOwner(c)
	if err != nil {
		return err
	}
	addressID, err := paramID(c, "address_id")
	if err != nil {
		return err
	}

	if err := h.addresses.Delete(c.UserContext(), userID, addressID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
