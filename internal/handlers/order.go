package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/foodorder/internal/middleware"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/services"
	"github.com/example/foodorder/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type orderLineRequest struct {
	MenuID   string `json:"menu_id" validate:"required,uuid"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	UserID        string             `json:"user_id" validate:"omitempty,uuid"`
	AddressID     string             `json:"address_id" validate:"omitempty,uuid"`
	PaymentMethod string             `json:"payment_method"`
	Items         []orderLineRequest `json:"items" validate:"dive"`
}

// CreateOrder places an order for the caller. Admins may place orders on behalf of another user.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	profile, ok := middleware.GetCurrentProfile(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	userID := profile.ID
	if req.UserID != "" {
		requested := uuid.MustParse(req.UserID)
		if requested != profile.ID && !profile.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "cannot place orders for another user")
		}
		userID = requested
	}

	in := services.PlaceOrderInput{
		UserID:        userID,
		PaymentMethod: req.PaymentMethod,
		Items:         make([]services.OrderLine, 0, len(req.Items)),
	}
	if req.AddressID != "" {
		addressID := uuid.MustParse(req.AddressID)
		in.AddressID = &addressID
	}
	for _, line := range req.Items {
		in.Items = append(in.Items, services.OrderLine{
			MenuItemID: uuid.MustParse(line.MenuID),
			Quantity:   line.Quantity,
		})
	}

	order, err := h.orders.PlaceOrder(c.UserContext(), in)
	if err != nil {
		// An unknown menu item is a bad request here, not a missing resource.
		if errors.Is(err, services.ErrMenuItemNotFound) {
			return badRequest(err)
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
		"status":       order.Status,
		"data":         order,
	})
}

// ListUserOrders returns a user's orders with their items. Customers may only list their own.
func (h *OrderHandler) ListUserOrders(c *fiber.Ctx) error {
	profile, ok := middleware.GetCurrentProfile(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	if userID != profile.ID && !profile.IsAdmin() {
		return fiber.NewError(fiber.StatusForbidden, "cannot view another user's orders")
	}

	pagination := utils.ParsePagination(c)
	orders, total, err := h.orders.ListForUser(c.UserContext(), userID, services.ListOrdersParams{
		Status: models.OrderStatus(c.Query("status")),
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pagination.Meta(total),
	})
}

// GetOrder returns one order with its history. Only the owner or an admin may see it.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	profile, ok := middleware.GetCurrentProfile(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	order, err := h.orders.Get(c.UserContext(), orderID)
	if err != nil {
		return err
	}
	if order.UserID != profile.ID && !profile.IsAdmin() {
		// Same answer as a missing order so ids cannot be probed.
		return services.ErrOrderNotFound
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// ListOrders returns all orders for the back office.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)
	orders, total, err := h.orders.ListAll(c.UserContext(), services.ListOrdersParams{
		Status: models.OrderStatus(c.Query("status")),
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pagination.Meta(total),
	})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus overwrites an order's status.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var req updateOrderStatusRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	actor, _ := middleware.GetCurrentUserID(c)
	order, err := h.orders.SetOrderStatus(c.UserContext(), orderID, models.OrderStatus(req.Status), &actor)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

// UpdatePayment changes an order's payment status. Marking it Paid confirms the order.
func (h *OrderHandler) UpdatePayment(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var req updatePaymentRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	actor, _ := middleware.GetCurrentUserID(c)
	order, err := h.orders.SetPaymentStatus(c.UserContext(), orderID, models.PaymentStatus(req.PaymentStatus), &actor)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order_id":     order.ID,
			"order_status": order.Status,
			"payment":      order.Payment,
		},
	})
}
