package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/foodorder/internal/metrics"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/statemachine"
)

// DefaultPaymentMethod is recorded when an order does not name one.
const DefaultPaymentMethod = "cash"

// OrderService places orders and drives order and payment status changes.
type OrderService struct {
	db       *gorm.DB
	log      logrus.FieldLogger
	events   OrderEvents
	lockRows bool
	now      func() time.Time
}

// OrderServiceOptions configures OrderService.
type OrderServiceOptions struct {
	// LockRows selects priced menu items and mutated orders FOR UPDATE.
	LockRows bool
	Events   OrderEvents
	Now      func() time.Time
}

// NewOrderService constructs OrderService.
func NewOrderService(db *gorm.DB, log logrus.FieldLogger, opts OrderServiceOptions) *OrderService {
	events := opts.Events
	if events == nil {
		events = EventFanout{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &OrderService{
		db:       db,
		log:      log.WithField("component", "orders"),
		events:   events,
		lockRows: opts.LockRows,
		now:      now,
	}
}

// OrderLine is one requested (menu item, quantity) pair.
type OrderLine struct {
	MenuItemID uuid.UUID
	Quantity   int
}

// PlaceOrderInput describes a checkout.
type PlaceOrderInput struct {
	UserID        uuid.UUID
	AddressID     *uuid.UUID
	PaymentMethod string
	Items         []OrderLine
}

// PlaceOrder prices the lines at current catalog prices and persists the order header, its
// items and an Unpaid payment in one transaction. Nothing is written unless all of it is.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		metrics.RecordOrderFailure("empty_order")
		return nil, ErrEmptyOrder
	}
	for _, line := range in.Items {
		if line.Quantity <= 0 {
			metrics.RecordOrderFailure("invalid_quantity")
			return nil, fmt.Errorf("%w: got %d for menu item %s", ErrInvalidQuantity, line.Quantity, line.MenuItemID)
		}
	}

	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = DefaultPaymentMethod
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		address, err := s.resolveAddress(tx, in.UserID, in.AddressID)
		if err != nil {
			return err
		}

		catalog, err := s.priceLines(tx, in.Items)
		if err != nil {
			return err
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(in.Items))
		for _, line := range in.Items {
			menu := catalog[line.MenuItemID]
			subtotal := menu.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(subtotal)
			items = append(items, models.OrderItem{
				MenuItemID: menu.ID,
				MenuName:   menu.Name,
				Quantity:   line.Quantity,
				PriceEach:  menu.Price,
				Subtotal:   subtotal,
			})
		}

		order = models.Order{
			UserID:      in.UserID,
			AddressID:   address.ID,
			Status:      models.OrderStatusPending,
			TotalAmount: total,
			PlacedAt:    s.now(),
		}
		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}

		payment := models.Payment{
			OrderID:       order.ID,
			PaymentMethod: method,
			AmountPaid:    total,
			Status:        models.PaymentStatusUnpaid,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		if err := recordStatus(tx, order.ID, "", models.OrderStatusPending, &in.UserID, "order placed"); err != nil {
			return err
		}

		order.Items = items
		order.Payment = &payment
		return nil
	})
	if err != nil {
		metrics.RecordOrderFailure(failureReason(err))
		s.log.WithError(err).WithField("user_id", in.UserID).Warn("order placement failed")
		return nil, err
	}

	metrics.RecordOrderPlaced()
	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.TotalAmount.String(),
	}).Info("order placed")
	s.events.OrderPlaced(ctx, &order)

	return &order, nil
}

func (s *OrderService) resolveAddress(tx *gorm.DB, userID uuid.UUID, addressID *uuid.UUID) (*models.Address, error) {
	var address models.Address
	var err error
	if addressID != nil {
		err = tx.First(&address, "id = ? AND user_id = ?", *addressID, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
	} else {
		err = tx.First(&address, "user_id = ? AND is_default = ?", userID, true).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoDefaultAddress
		}
	}
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// priceLines loads every referenced menu item once. Any unknown or unavailable item aborts.
func (s *OrderService) priceLines(tx *gorm.DB, lines []OrderLine) (map[uuid.UUID]models.MenuItem, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if !seen[line.MenuItemID] {
			seen[line.MenuItemID] = true
			ids = append(ids, line.MenuItemID)
		}
	}

	query := tx.Where("id IN ?", ids)
	if s.lockRows {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var found []models.MenuItem
	if err := query.Find(&found).Error; err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}

	byID := make(map[uuid.UUID]models.MenuItem, len(found))
	for _, item := range found {
		byID[item.ID] = item
	}

	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMenuItemNotFound, id)
		}
		if !item.IsAvailable {
			return nil, fmt.Errorf("%w: %s", ErrMenuItemUnavailable, item.Name)
		}
	}
	return byID, nil
}

// SetOrderStatus overwrites an order's status on behalf of an admin.
func (s *OrderService) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus, actor *uuid.UUID) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrderStatus, status)
	}

	var order models.Order
	var from models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockOrder(tx, orderID, &order); err != nil {
			return err
		}
		from = order.Status

		if err := statemachine.CanTransition(from, status, statemachine.ActorAdmin); err != nil {
			return fmt.Errorf("%w: %v", ErrTransitionForbidden, err)
		}

		if err := tx.Model(&order).Update("status", status).Error; err != nil {
			return err
		}
		order.Status = status
		return recordStatus(tx, order.ID, from, status, actor, "set by admin")
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordOrderStatus(string(status))
	s.log.WithFields(logrus.Fields{"order_id": order.ID, "from": from, "to": status}).Info("order status changed")
	s.events.OrderStatusChanged(ctx, &order, from)

	return &order, nil
}

// SetPaymentStatus updates an order's payment. Paid stamps the payment date and confirms the
// order in the same transaction. Other statuses leave the order untouched.
func (s *OrderService) SetPaymentStatus(ctx context.Context, orderID uuid.UUID, status models.PaymentStatus, actor *uuid.UUID) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, status)
	}

	var order models.Order
	var payment models.Payment
	var from models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if s.lockRows {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(&payment, "order_id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}

		if !statemachine.CanTransitionPayment(payment.Status, status) {
			return fmt.Errorf("%w: payment %s -> %s", ErrTransitionForbidden, payment.Status, status)
		}

		payment.Status = status
		if statemachine.ForcesConfirmation(status) {
			paidAt := s.now()
			payment.PaidAt = &paidAt
		}
		if err := tx.Model(&payment).Select("status", "payment_date").Updates(&payment).Error; err != nil {
			return err
		}

		if err := s.lockOrder(tx, orderID, &order); err != nil {
			return err
		}
		from = order.Status

		if statemachine.ForcesConfirmation(status) {
			if err := statemachine.CanTransition(from, models.OrderStatusConfirmed, statemachine.ActorSystem); err != nil {
				return fmt.Errorf("%w: %v", ErrTransitionForbidden, err)
			}
			if err := tx.Model(&order).Update("status", models.OrderStatusConfirmed).Error; err != nil {
				return err
			}
			order.Status = models.OrderStatusConfirmed
			if from != models.OrderStatusConfirmed {
				if err := recordStatus(tx, order.ID, from, models.OrderStatusConfirmed, actor, "payment received"); err != nil {
					return err
				}
			}
		}

		order.Payment = &payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentUpdate(string(status))
	s.log.WithFields(logrus.Fields{"order_id": orderID, "payment_status": status}).Info("payment status changed")
	s.events.PaymentUpdated(ctx, &order, &payment)
	if order.Status != from {
		metrics.RecordOrderStatus(string(order.Status))
		s.events.OrderStatusChanged(ctx, &order, from)
	}

	return &order, nil
}

func (s *OrderService) lockOrder(tx *gorm.DB, orderID uuid.UUID, order *models.Order) error {
	query := tx
	if s.lockRows {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.First(order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	return nil
}

// ListOrdersParams filters order listings.
type ListOrdersParams struct {
	Status models.OrderStatus
	Limit  int
	Offset int
}

// ListForUser returns a user's orders, newest first, with items and payment.
func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID, params ListOrdersParams) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	return s.list(query, params, false)
}

// ListAll returns every order, newest first, with the ordering user's name.
func (s *OrderService) ListAll(ctx context.Context, params ListOrdersParams) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	return s.list(query, params, true)
}

func (s *OrderService) list(query *gorm.DB, params ListOrdersParams, withUser bool) ([]models.Order, int64, error) {
	if params.Status != "" {
		if !params.Status.Valid() {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidOrderStatus, params.Status)
		}
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Items").Preload("Payment")
	if withUser {
		query = query.Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "phone", "role")
		})
	}
	if params.Limit > 0 {
		query = query.Limit(params.Limit).Offset(params.Offset)
	}

	var orders []models.Order
	if err := query.Order("placed_at desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Get returns one order with items, payment, address and status history.
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Preload("Address").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// DashboardStats aggregates order figures for the back office.
type DashboardStats struct {
	TotalOrders    int64                        `json:"total_orders"`
	OrdersByStatus map[models.OrderStatus]int64 `json:"orders_by_status"`
	PaidRevenue    decimal.Decimal              `json:"paid_revenue"`
	UnpaidAmount   decimal.Decimal              `json:"unpaid_amount"`
	OrdersToday    int64                        `json:"orders_today"`
}

// Stats computes DashboardStats.
func (s *OrderService) Stats(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{OrdersByStatus: make(map[models.OrderStatus]int64)}

	if err := db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}

	type statusCount struct {
		Status models.OrderStatus
		Count  int64
	}
	var counts []statusCount
	if err := db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, sc := range counts {
		stats.OrdersByStatus[sc.Status] = sc.Count
	}

	var err error
	if stats.PaidRevenue, err = sumPayments(db, models.PaymentStatusPaid); err != nil {
		return nil, err
	}
	if stats.UnpaidAmount, err = sumPayments(db, models.PaymentStatusUnpaid); err != nil {
		return nil, err
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Model(&models.Order{}).Where("placed_at >= ?", startOfDay).Count(&stats.OrdersToday).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func sumPayments(db *gorm.DB, status models.PaymentStatus) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := db.Model(&models.Payment{}).
		Select("SUM(amount_paid)").
		Where("status = ?", status).
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func recordStatus(tx *gorm.DB, orderID uuid.UUID, from, to models.OrderStatus, actor *uuid.UUID, note string) error {
	entry := models.OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  actor,
		Note:       note,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("record status history: %w", err)
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrMenuItemNotFound):
		return "unknown_item"
	case errors.Is(err, ErrMenuItemUnavailable):
		return "unavailable_item"
	case errors.Is(err, ErrAddressNotFound), errors.Is(err, ErrNoDefaultAddress):
		return "address"
	default:
		return "persistence"
	}
}
