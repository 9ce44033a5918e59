package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides shared columns for all tables.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures UUIDs are generated for new records.
// Profiles keep the identity provider's id when one is set.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&Profile{},
		&Address{},
		&Category{},
		&MenuItem{},
		&GalleryImage{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&OrderStatusHistory{},
	}
}
