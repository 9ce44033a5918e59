package models

import (
	"github.com/google/uuid"
)

// Role gates access to admin operations.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Profile is the internal user record. Its ID mirrors the identity provider's user id.
type Profile struct {
	BaseModel
	Email        *string   `gorm:"uniqueIndex" json:"email"`
	Name         string    `gorm:"not null" json:"name"`
	Phone        *string   `json:"phone"`
	Role         Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	PasswordHash string    `json:"-"`
	Addresses    []Address `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"addresses,omitempty"`
}

// IsAdmin reports whether the profile may use admin endpoints.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Address belongs to exactly one profile. At most one address per user is the default.
type Address struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_addresses_one_default,where:is_default = true" json:"user_id"`
	Label      string    `json:"label"`
	Street     string    `gorm:"not null" json:"street"`
	City       string    `gorm:"not null" json:"city"`
	PostalCode string    `json:"postal_code"`
	IsDefault  bool      `gorm:"not null" json:"is_default"`
}
