package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/foodorder/internal/models"
)

// OrderEvents receives order lifecycle notifications after the database commit.
// Implementations must not block the request for long.
type OrderEvents interface {
	OrderPlaced(ctx context.Context, order *models.Order)
	OrderStatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus)
	PaymentUpdated(ctx context.Context, order *models.Order, payment *models.Payment)
}

// EventFanout delivers every event to each listener in order.
type EventFanout []OrderEvents

func (f EventFanout) OrderPlaced(ctx context.Context, order *models.Order) {
	for _, l := range f {
		l.OrderPlaced(ctx, order)
	}
}

func (f EventFanout) OrderStatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) {
	for _, l := range f {
		l.OrderStatusChanged(ctx, order, from)
	}
}

func (f EventFanout) PaymentUpdated(ctx context.Context, order *models.Order, payment *models.Payment) {
	for _, l := range f {
		l.PaymentUpdated(ctx, order, payment)
	}
}

// Redis channels for order events.
const (
	EventChannelPrefix = "orders:events:"
	EventChannelAll    = EventChannelPrefix + "all"
)

// Event types.
const (
	EventOrderPlaced   = "order.placed"
	EventStatusChanged = "order.status_changed"
	EventPaymentUpdate = "payment.updated"
)

// OrderEvent is the JSON payload published to Redis.
type OrderEvent struct {
	Type          string               `json:"type"`
	OrderID       uuid.UUID            `json:"order_id"`
	UserID        uuid.UUID            `json:"user_id"`
	Status        models.OrderStatus   `json:"status"`
	PreviousState models.OrderStatus   `json:"previous_status,omitempty"`
	PaymentStatus models.PaymentStatus `json:"payment_status,omitempty"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// RedisEventPublisher publishes order events to Redis pub/sub. A nil client disables it.
type RedisEventPublisher struct {
	rdb *redis.Client
	log logrus.FieldLogger
}

// NewRedisEventPublisher constructs RedisEventPublisher.
func NewRedisEventPublisher(rdb *redis.Client, log logrus.FieldLogger) *RedisEventPublisher {
	return &RedisEventPublisher{rdb: rdb, log: log.WithField("component", "events")}
}

func (p *RedisEventPublisher) OrderPlaced(ctx context.Context, order *models.Order) {
	p.publish(ctx, newOrderEvent(EventOrderPlaced, order))
}

func (p *RedisEventPublisher) OrderStatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) {
	event := newOrderEvent(EventStatusChanged, order)
	event.PreviousState = from
	p.publish(ctx, event)
}

func (p *RedisEventPublisher) PaymentUpdated(ctx context.Context, order *models.Order, payment *models.Payment) {
	event := newOrderEvent(EventPaymentUpdate, order)
	event.PaymentStatus = payment.Status
	p.publish(ctx, event)
}

func (p *RedisEventPublisher) publish(ctx context.Context, event OrderEvent) {
	if p.rdb == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).Warn("marshal order event")
		return
	}

	for _, channel := range []string{EventChannelPrefix + event.Type, EventChannelAll} {
		if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
			p.log.WithError(err).WithField("channel", channel).Warn("publish order event")
		}
	}
}

func newOrderEvent(eventType string, order *models.Order) OrderEvent {
	event := OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
	if order.Payment != nil {
		event.PaymentStatus = order.Payment.Status
	}
	return event
}
