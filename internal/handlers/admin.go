package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/foodorder/internal/services"
)

const recentOrdersLimit = 5

// AdminHandler manages admin-only dashboard endpoints.
type AdminHandler struct {
	orders   *services.OrderService
	profiles *services.ProfileService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(orders *services.OrderService, profiles *services.ProfileService) *AdminHandler {
	return &AdminHandler{orders: orders, profiles: profiles}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.orders.Stats(c.UserContext())
	if err != nil {
		return err
	}

	totalUsers, err := h.profiles.Count(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":      totalUsers,
			"total_orders":     stats.TotalOrders,
			"orders_today":     stats.OrdersToday,
			"paid_revenue":     stats.PaidRevenue,
			"unpaid_amount":    stats.UnpaidAmount,
			"orders_by_status": stats.OrdersByStatus,
		},
	})
}

// RecentOrders returns the most recent orders for the dashboard.
func (h *AdminHandler) RecentOrders(c *fiber.Ctx) error {
	orders, _, err := h.orders.ListAll(c.UserContext(), services.ListOrdersParams{Limit: recentOrdersLimit})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
	})
}
