package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "Pending"
	OrderStatusConfirmed      OrderStatus = "Confirmed"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentStatus is the closed set of payment states.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "Unpaid"
	PaymentStatusPaid   PaymentStatus = "Paid"
	PaymentStatusFailed PaymentStatus = "Failed"
)

var PaymentStatuses = []PaymentStatus{
	PaymentStatusUnpaid,
	PaymentStatusPaid,
	PaymentStatusFailed,
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	for _, known := range PaymentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type Order struct {
	BaseModel
	UserID      uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *Profile             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AddressID   uuid.UUID            `gorm:"type:uuid;not null;index" json:"address_id"`
	Address     *Address             `json:"address,omitempty"`
	Status      OrderStatus          `gorm:"type:varchar(32);not null;index" json:"status"`
	TotalAmount decimal.Decimal      `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	PlacedAt    time.Time            `gorm:"not null;index" json:"placed_at"`
	Items       []OrderItem          `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payment     *Payment             `gorm:"constraint:OnDelete:CASCADE" json:"payment,omitempty"`
	History     []OrderStatusHistory `gorm:"constraint:OnDelete:CASCADE" json:"history,omitempty"`
}

// OrderItem snapshots the catalog price and name at placement time.
type OrderItem struct {
	BaseModel
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	MenuItemID uuid.UUID       `gorm:"type:uuid;not null;index" json:"menu_id"`
	MenuName   string          `json:"menu_name"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	PriceEach  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_each"`
	Subtotal   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
}

// Payment is created Unpaid together with its order. PaidAt stays nil until the status becomes Paid.
type Payment struct {
	BaseModel
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	PaymentMethod string          `json:"payment_method"`
	AmountPaid    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount_paid"`
	Status        PaymentStatus   `gorm:"type:varchar(16);not null" json:"payment_status"`
	PaidAt        *time.Time      `gorm:"column:payment_date" json:"payment_date"`
}

// OrderStatusHistory records every order status change.
type OrderStatusHistory struct {
	BaseModel
	OrderID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"order_id"`
	FromStatus OrderStatus `gorm:"type:varchar(32)" json:"from_status"`
	ToStatus   OrderStatus `gorm:"type:varchar(32);not null" json:"to_status"`
	ChangedBy  *uuid.UUID  `gorm:"type:uuid" json:"changed_by"`
	Note       string      `json:"note"`
}
