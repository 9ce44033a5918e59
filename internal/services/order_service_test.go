package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/logging"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/testutil"
)

type recordedEvents struct {
	mu       sync.Mutex
	placed   []uuid.UUID
	statuses []models.OrderStatus
	payments []models.PaymentStatus
}

func (r *recordedEvents) OrderPlaced(_ context.Context, order *models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed = append(r.placed, order.ID)
}

func (r *recordedEvents) OrderStatusChanged(_ context.Context, order *models.Order, _ models.OrderStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, order.Status)
}

func (r *recordedEvents) PaymentUpdated(_ context.Context, _ *models.Order, payment *models.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, payment.Status)
}

type orderFixture struct {
	db       *gorm.DB
	svc      *OrderService
	events   *recordedEvents
	user     models.Profile
	address  models.Address
	itemA    models.MenuItem
	itemB    models.MenuItem
	category models.Category
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	db := testutil.NewDB(t)
	events := &recordedEvents{}
	f := &orderFixture{
		db:     db,
		events: events,
		svc: NewOrderService(db, logging.Discard(), OrderServiceOptions{
			LockRows: true,
			Events:   events,
		}),
	}
	f.user = testutil.CreateProfile(t, db, "budi", models.RoleCustomer)
	f.address = testutil.CreateAddress(t, db, f.user.ID, "Home", true)
	f.category = testutil.CreateCategory(t, db, "Mains")
	f.itemA = testutil.CreateMenuItem(t, db, f.category.ID, "Nasi Goreng", "15000")
	f.itemB = testutil.CreateMenuItem(t, db, f.category.ID, "Es Teh", "5000")
	return f
}

func (f *orderFixture) place(t *testing.T, lines ...OrderLine) (*models.Order, error) {
	t.Helper()
	return f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:    f.user.ID,
		AddressID: &f.address.ID,
		Items:     lines,
	})
}

func (f *orderFixture) assertNothingPersisted(t *testing.T) {
	t.Helper()
	for _, model := range []interface{}{&models.Order{}, &models.OrderItem{}, &models.Payment{}, &models.OrderStatusHistory{}} {
		var count int64
		require.NoError(t, f.db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T rows", model)
	}
}

func decimalEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestPlaceOrderHappyPath(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.place(t, OrderLine{MenuItemID: f.itemA.ID, Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	decimalEqual(t, "30000", order.TotalAmount)
	assert.Equal(t, []uuid.UUID{order.ID}, f.events.placed)

	var stored models.Order
	require.NoError(t, f.db.Preload("Items").Preload("Payment").First(&stored, "id = ?", order.ID).Error)
	decimalEqual(t, "30000", stored.TotalAmount)
	require.Len(t, stored.Items, 1)

	item := stored.Items[0]
	assert.Equal(t, f.itemA.ID, item.MenuItemID)
	assert.Equal(t, "Nasi Goreng", item.MenuName)
	assert.Equal(t, 2, item.Quantity)
	decimalEqual(t, "15000", item.PriceEach)
	decimalEqual(t, "30000", item.Subtotal)

	require.NotNil(t, stored.Payment)
	assert.Equal(t, models.PaymentStatusUnpaid, stored.Payment.Status)
	decimalEqual(t, "30000", stored.Payment.AmountPaid)
	assert.Nil(t, stored.Payment.PaidAt)
	assert.Equal(t, DefaultPaymentMethod, stored.Payment.PaymentMethod)

	var history []models.OrderStatusHistory
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, models.OrderStatusPending, history[0].ToStatus)
}

func TestPlaceOrderTotalsMatchSubtotals(t *testing.T) {
	f := newOrderFixture(t)
	soup := testutil.CreateMenuItem(t, f.db, f.category.ID, "Soto", "12.50")
	tea := testutil.CreateMenuItem(t, f.db, f.category.ID, "Teh Tarik", "7.25")

	order, err := f.place(t,
		OrderLine{MenuItemID: soup.ID, Quantity: 3},
		OrderLine{MenuItemID: tea.ID, Quantity: 2},
		OrderLine{MenuItemID: soup.ID, Quantity: 1},
	)
	require.NoError(t, err)
	decimalEqual(t, "64.5", order.TotalAmount)

	var items []models.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&items).Error)
	require.Len(t, items, 3)

	sum := decimal.Zero
	for _, item := range items {
		assert.True(t, item.PriceEach.Mul(decimal.NewFromInt(int64(item.Quantity))).Equal(item.Subtotal))
		sum = sum.Add(item.Subtotal)
	}
	assert.True(t, sum.Equal(order.TotalAmount))
}

func TestPlaceOrderRollsBackWhenPaymentInsertFails(t *testing.T) {
	f := newOrderFixture(t)
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_payments", func(tx *gorm.DB) {
		if tx.Statement.Table == "payments" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	order, err := f.place(t, OrderLine{MenuItemID: f.itemA.ID, Quantity: 2}, OrderLine{MenuItemID: f.itemB.ID, Quantity: 1})
	require.Error(t, err)
	assert.Nil(t, order)
	assert.Contains(t, err.Error(), "disk full")

	f.assertNothingPersisted(t)
	assert.Empty(t, f.events.placed)
}

func TestPlaceOrderRejectsEmptyCart(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.place(t)
	assert.ErrorIs(t, err, ErrEmptyOrder)
	f.assertNothingPersisted(t)
	assert.Empty(t, f.events.placed)
}

func TestPlaceOrderRejectsNonPositiveQuantity(t *testing.T) {
	f := newOrderFixture(t)

	for _, qty := range []int{0, -3} {
		_, err := f.place(t, OrderLine{MenuItemID: f.itemA.ID, Quantity: 1}, OrderLine{MenuItemID: f.itemB.ID, Quantity: qty})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
	f.assertNothingPersisted(t)
}

func TestPlaceOrderUnknownItemRollsBack(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.place(t,
		OrderLine{MenuItemID: f.itemA.ID, Quantity: 1},
		OrderLine{MenuItemID: uuid.New(), Quantity: 1},
	)
	assert.ErrorIs(t, err, ErrMenuItemNotFound)
	f.assertNothingPersisted(t)
}

func TestPlaceOrderUnavailableItem(t *testing.T) {
	f := newOrderFixture(t)
	require.NoError(t, f.db.Model(&f.itemB).Update("is_available", false).Error)

	_, err := f.place(t, OrderLine{MenuItemID: f.itemB.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrMenuItemUnavailable)
	f.assertNothingPersisted(t)
}

func TestPlaceOrderAddressResolution(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	t.Run("falls back to default address", func(t *testing.T) {
		order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
			UserID: f.user.ID,
			Items:  []OrderLine{{MenuItemID: f.itemA.ID, Quantity: 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, f.address.ID, order.AddressID)
	})

	t.Run("rejects another user's address", func(t *testing.T) {
		other := testutil.CreateProfile(t, f.db, "sari", models.RoleCustomer)
		otherAddress := testutil.CreateAddress(t, f.db, other.ID, "Office", false)

		_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
			UserID:    f.user.ID,
			AddressID: &otherAddress.ID,
			Items:     []OrderLine{{MenuItemID: f.itemA.ID, Quantity: 1}},
		})
		assert.ErrorIs(t, err, ErrAddressNotFound)
	})

	t.Run("no default address", func(t *testing.T) {
		loner := testutil.CreateProfile(t, f.db, "joko", models.RoleCustomer)
		testutil.CreateAddress(t, f.db, loner.ID, "Kos", false)

		_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
			UserID: loner.ID,
			Items:  []OrderLine{{MenuItemID: f.itemA.ID, Quantity: 1}},
		})
		assert.ErrorIs(t, err, ErrNoDefaultAddress)
	})
}

func TestPlaceOrderSnapshotsPrice(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.place(t, OrderLine{MenuItemID: f.itemA.ID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&f.itemA).Update("price", decimal.NewFromInt(20000)).Error)

	got, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	decimalEqual(t, "30000", got.TotalAmount)
	decimalEqual(t, "15000", got.Items[0].PriceEach)
	require.NotNil(t, got.Address)
	assert.Equal(t, f.address.ID, got.Address.ID)
}

func TestSetPaymentStatusPaidConfirmsOrder(t *testing.T) {
	paidAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	f := newOrderFixture(t)
	f.svc.now = func() time.Time { return paidAt }

	order, err := f.place(t, OrderLine{MenuItemID: f.itemA.ID, Quantity: 1})
	require.NoError(t, err)

	admin := testutil.CreateProfile(t, f.db, "admin", models.RoleAdmin)
	updated, err := f.svc.SetPaymentStatus(context.Background(), order.ID, models.PaymentStatusPaid, &admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, "order_id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)
	require.NotNil(t, payment.PaidAt)
	assert.True(t, paidAt.Equal(*payment.PaidAt))

	var stored models.Order
	require.NoError(t, f.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)

	var count int64
	require.NoError(t, f.db.Model(&models.OrderStatusHistory{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	var confirmation models.OrderStatusHistory
	require.NoError(t, f.db.First(&confirmation, "order_id = ? AND to_status = ?", order.ID, models.OrderStatusConfirmed).Error)
	assert.Equal(t, models.OrderStatusPending, confirmation.FromStatus)
	require.NotNil(t, confirmation.ChangedBy)
	assert.Equal(t, admin.ID, *confirmation.ChangedBy)

	assert.Equal(t, []models.PaymentStatus{models.PaymentStatusPaid}, f.events.payments)
	assert.Equal(t, []models.OrderStatus{models.OrderStatusConfirmed}, f.events.statuses)
}

func TestSetPaymentStatusOtherStatusesLeaveOrderAlone(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.place(t, OrderLine{MenuItemID: f.itemA.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.SetOrderStatus(ctx, order.ID, models.OrderStatusOutForDelivery, nil)
	require.NoError(t, err)

	for _, status := range []models.PaymentStatus{models.PaymentStatusFailed, models.PaymentStatusUnpaid} {
		updated, err := f.svc.SetPaymentStatus(ctx, order.ID, status, nil)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusOutForDelivery, updated.Status)
		assert.Equal(t, status, updated.Payment.Status)
		assert.Nil(t, updated.Payment.PaidAt)
	}

	var stored models.Order
	require.NoError(t, f.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusOutForDelivery, stored.Status)
}

func TestSetPaymentStatusErrors(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetPaymentStatus(ctx, uuid.New(), models.PaymentStatusPaid, nil)
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	_, err = f.svc.SetPaymentStatus(ctx, uuid.New(), "Refunded", nil)
	assert.ErrorIs(t, err, ErrInvalidPaymentStatus)
}

func TestSetOrderStatus(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.place(t, OrderLine{MenuItemID: f.itemA.ID, Quantity: 1})
	require.NoError(t, err)

	updated, err := f.svc.SetOrderStatus(ctx, order.ID, models.OrderStatusConfirmed, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)

	updated, err = f.svc.SetOrderStatus(ctx, order.ID, models.OrderStatusPending, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, updated.Status)

	_, err = f.svc.SetOrderStatus(ctx, order.ID, "Cooking", nil)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)

	_, err = f.svc.SetOrderStatus(ctx, uuid.New(), models.OrderStatusDelivered, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, "order_id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentStatusUnpaid, payment.Status)
}

func TestListOrdersAndStats(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	first, err := f.place(t, OrderLine{MenuItemID: f.itemA.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.place(t, OrderLine{MenuItemID: f.itemB.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.SetPaymentStatus(ctx, first.ID, models.PaymentStatusPaid, nil)
	require.NoError(t, err)

	mine, total, err := f.svc.ListForUser(ctx, f.user.ID, ListOrdersParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, mine, 2)
	for _, order := range mine {
		assert.NotEmpty(t, order.Items)
		assert.NotNil(t, order.Payment)
	}

	confirmed, total, err := f.svc.ListAll(ctx, ListOrdersParams{Status: models.OrderStatusConfirmed, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, confirmed, 1)
	require.NotNil(t, confirmed[0].User)
	assert.Equal(t, "budi", confirmed[0].User.Name)

	other := testutil.CreateProfile(t, f.db, "sari", models.RoleCustomer)
	none, total, err := f.svc.ListForUser(ctx, other.ID, ListOrdersParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)

	_, _, err = f.svc.ListAll(ctx, ListOrdersParams{Status: "Cooking"})
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.OrdersByStatus[models.OrderStatusConfirmed])
	assert.EqualValues(t, 1, stats.OrdersByStatus[models.OrderStatusPending])
	decimalEqual(t, "15000", stats.PaidRevenue)
	decimalEqual(t, "10000", stats.UnpaidAmount)
}
