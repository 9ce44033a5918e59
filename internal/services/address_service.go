package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/foodorder/internal/models"
)

// AddressService manages delivery addresses and the per-user default flag.
type AddressService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewAddressService constructs AddressService.
func NewAddressService(db *gorm.DB, log logrus.FieldLogger) *AddressService {
	return &AddressService{db: db, log: log.WithField("component", "addresses")}
}

// AddressInput describes a new address.
type AddressInput struct {
	Label      string
	Street     string
	City       string
	PostalCode string
	IsDefault  bool
}

// AddressUpdate carries optional address changes.
type AddressUpdate struct {
	Label      *string
	Street     *string
	City       *string
	PostalCode *string
	IsDefault  *bool
}

func (u AddressUpdate) empty() bool {
	return u.Label == nil && u.Street == nil && u.City == nil && u.PostalCode == nil && u.IsDefault == nil
}

// List returns the user's addresses, default first.
func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var addresses []models.Address
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default desc").Order("created_at asc").
		Find(&addresses).Error
	return addresses, err
}

// Create stores a new address. A default address replaces the previous default atomically.
func (s *AddressService) Create(ctx context.Context, userID uuid.UUID, in AddressInput) (*models.Address, error) {
	address := models.Address{
		UserID:     userID,
		Label:      strings.TrimSpace(in.Label),
		Street:     strings.TrimSpace(in.Street),
		City:       strings.TrimSpace(in.City),
		PostalCode: strings.TrimSpace(in.PostalCode),
		IsDefault:  in.IsDefault,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOwner(tx, userID); err != nil {
			return err
		}
		if address.IsDefault {
			if err := clearDefault(tx, userID, uuid.Nil); err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return nil, err
	}

	return &address, nil
}

// Update applies the non-nil fields of upd to one of the user's addresses.
func (s *AddressService) Update(ctx context.Context, userID, addressID uuid.UUID, upd AddressUpdate) (*models.Address, error) {
	if upd.empty() {
		return nil, ErrNothingToUpdate
	}

	var address models.Address
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOwner(tx, userID); err != nil {
			return err
		}

		if err := tx.First(&address, "id = ? AND user_id = ?", addressID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAddressNotFound
			}
			return err
		}

		if upd.Label != nil {
			address.Label = strings.TrimSpace(*upd.Label)
		}
		if upd.Street != nil {
			address.Street = strings.TrimSpace(*upd.Street)
		}
		if upd.City != nil {
			address.City = strings.TrimSpace(*upd.City)
		}
		if upd.PostalCode != nil {
			address.PostalCode = strings.TrimSpace(*upd.PostalCode)
		}
		if upd.IsDefault != nil {
			if *upd.IsDefault {
				if err := clearDefault(tx, userID, address.ID); err != nil {
					return err
				}
			}
			address.IsDefault = *upd.IsDefault
		}

		return tx.Save(&address).Error
	})
	if err != nil {
		return nil, err
	}

	return &address, nil
}

// Delete removes one of the user's addresses. Addresses used by orders are kept.
func (s *AddressService) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var address models.Address
		if err := tx.First(&address, "id = ? AND user_id = ?", addressID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAddressNotFound
			}
			return err
		}

		var used int64
		if err := tx.Model(&models.Order{}).Where("address_id = ?", address.ID).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return ErrInUse
		}

		return tx.Delete(&address).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrInUse
	}
	return err
}

// lockOwner serializes default-address changes for one user and checks the user exists.
func lockOwner(tx *gorm.DB, userID uuid.UUID) error {
	var owner models.Profile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&owner, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProfileNotFound
	}
	return err
}

// clearDefault unsets the default flag on every address of userID except keep.
func clearDefault(tx *gorm.DB, userID, keep uuid.UUID) error {
	query := tx.Model(&models.Address{}).Where("user_id = ? AND is_default = ?", userID, true)
	if keep != uuid.Nil {
		query = query.Where("id <> ?", keep)
	}
	return query.Update("is_default", false).Error
}
