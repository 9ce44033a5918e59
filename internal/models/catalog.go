package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	BaseModel
	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	MenuItems   []MenuItem `json:"menu_items,omitempty"`
}

// MenuItem is an orderable dish. Price is the current catalog price; orders copy it at placement.
type MenuItem struct {
	BaseModel
	CategoryID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	Category    *Category       `json:"category,omitempty"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	IsAvailable bool            `gorm:"not null" json:"is_available"`
	Images      []GalleryImage  `gorm:"constraint:OnDelete:CASCADE" json:"images"`
}

type GalleryImage struct {
	BaseModel
	MenuItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"menu_item_id"`
	URL        string    `gorm:"not null" json:"url"`
	Caption    string    `json:"caption"`
}
