package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/foodorder/internal/services"
	"github.com/example/foodorder/internal/utils"
)

// CatalogHandler manages categories, menu items and gallery images.
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListCategories returns all categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": categories})
}

// GetCategory returns a single category by ID.
func (h *CatalogHandler) GetCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	category, err := h.catalog.GetCategory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": category})
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// CreateCategory persists a new category.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	category, err := h.catalog.CreateCategory(c.UserContext(), services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": category})
}

type updateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

// UpdateCategory updates an existing category.
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req updateCategoryRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	category, err := h.catalog.UpdateCategory(c.UserContext(), id, services.CategoryUpdate{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": category})
}

// DeleteCategory removes an empty category.
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.catalog.DeleteCategory(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListMenu returns menu items, optionally filtered by category_id and available=true.
func (h *CatalogHandler) ListMenu(c *fiber.Ctx) error {
	var filter services.MenuFilter
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid category_id")
		}
		filter.CategoryID = &id
	}
	if raw := c.Query("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "available must be true or false")
		}
		filter.AvailableOnly = available
	}

	items, err := h.catalog.ListMenu(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

// GetMenuItem returns one menu item with its category and gallery.
func (h *CatalogHandler) GetMenuItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	item, err := h.catalog.GetMenuItem(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": item})
}

type galleryImageRequest struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

type menuItemRequest struct {
	CategoryID  string                `json:"category_id" validate:"required,uuid"`
	Name        string                `json:"name" validate:"required"`
	Description string                `json:"description"`
	Price       decimal.Decimal       `json:"price"`
	IsAvailable *bool                 `json:"is_available"`
	Images      []galleryImageRequest `json:"images"`
}

// CreateMenuItem adds a dish, optionally with gallery images.
func (h *CatalogHandler) CreateMenuItem(c *fiber.Ctx) error {
	var req menuItemRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	in := services.MenuItemInput{
		CategoryID:  uuid.MustParse(req.CategoryID),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	}
	for _, img := range req.Images {
		in.Images = append(in.Images, services.GalleryImageInput{URL: img.URL, Caption: img.Caption})
	}

	item, err := h.catalog.CreateMenuItem(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

type updateMenuItemRequest struct {
	CategoryID  *string          `json:"category_id" validate:"omitempty,uuid"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	IsAvailable *bool            `json:"is_available"`
}

// UpdateMenuItem changes a dish. Orders already placed keep their captured price.
func (h *CatalogHandler) UpdateMenuItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req updateMenuItemRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	upd := services.MenuItemUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsAvailable: req.IsAvailable,
	}
	if req.CategoryID != nil {
		categoryID := uuid.MustParse(*req.CategoryID)
		upd.CategoryID = &categoryID
	}

	item, err := h.catalog.UpdateMenuItem(c.UserContext(), id, upd)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": item})
}

// DeleteMenuItem removes a dish and its gallery.
func (h *CatalogHandler) DeleteMenuItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.catalog.DeleteMenuItem(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddGalleryImage attaches an image to a menu item.
func (h *CatalogHandler) AddGalleryImage(c *fiber.Ctx) error {
	menuID, err := paramID(c, "menu_id")
	if err != nil {
		return err
	}

	var req galleryImageRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	image, err := h.catalog.AddGalleryImage(c.UserContext(), menuID, services.GalleryImageInput{URL: req.URL, Caption: req.Caption})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": image})
}

type updateGalleryImageRequest struct {
	URL     *string `json:"url"`
	Caption *string `json:"caption"`
}

func (h *CatalogHandler) UpdateGalleryImage(c *fiber.Ctx) error {
	id, err := paramID(c, "gallery_id")
	if err != nil {
		return err
	}

	var req updateGalleryImageRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	image, err := h.catalog.UpdateGalleryImage(c.UserContext(), id, req.URL, req.Caption)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": image})
}

func (h *CatalogHandler) DeleteGalleryImage(c *fiber.Ctx) error {
	id, err := paramID(c, "gallery_id")
	if err != nil {
		return err
	}

	if err := h.catalog.DeleteGalleryImage(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
