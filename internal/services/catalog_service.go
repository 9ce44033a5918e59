package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/models"
)

// CatalogService manages categories, menu items and their gallery images.
type CatalogService struct {
	db    *gorm.DB
	cache *CatalogCache
	log   logrus.FieldLogger
}

// NewCatalogService constructs CatalogService. cache may be nil.
func NewCatalogService(db *gorm.DB, cache *CatalogCache, log logrus.FieldLogger) *CatalogService {
	return &CatalogService{db: db, cache: cache, log: log.WithField("component", "catalog")}
}

// CategoryInput describes a category.
type CategoryInput struct {
	Name        string
	Description string
	ImageURL    string
}

// CategoryUpdate carries optional category changes.
type CategoryUpdate struct {
	Name        *string
	Description *string
	ImageURL    *string
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.WithContext(ctx).Order("name asc").Find(&categories).Error
	return categories, err
}

func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	category := models.Category{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	if category.Name == "" {
		return nil, ErrEmptyName
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, upd CategoryUpdate) (*models.Category, error) {
	updates := map[string]interface{}{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		updates["name"] = name
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.ImageURL != nil {
		updates["image_url"] = *upd.ImageURL
	}
	if len(updates) == 0 {
		return nil, ErrNothingToUpdate
	}

	res := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrCategoryNotFound
	}

	s.cache.Invalidate(ctx)
	return s.GetCategory(ctx, id)
}

// DeleteCategory removes an empty category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items int64
		if err := tx.Model(&models.MenuItem{}).Where("category_id = ?", id).Count(&items).Error; err != nil {
			return err
		}
		if items > 0 {
			return fmt.Errorf("%w: category has %d menu items", ErrInUse, items)
		}

		res := tx.Delete(&models.Category{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx)
	return nil
}

// MenuFilter narrows the menu listing.
type MenuFilter struct {
	CategoryID    *uuid.UUID
	AvailableOnly bool
}

func (f MenuFilter) cacheKey() string {
	category := "all"
	if f.CategoryID != nil {
		category = f.CategoryID.String()
	}
	return fmt.Sprintf("%s:%t", category, f.AvailableOnly)
}

// ListMenu returns menu items with their images, served from cache when possible.
func (s *CatalogService) ListMenu(ctx context.Context, filter MenuFilter) ([]models.MenuItem, error) {
	key := filter.cacheKey()

	var items []models.MenuItem
	if s.cache.GetMenu(ctx, key, &items) {
		return items, nil
	}

	query := s.db.WithContext(ctx).Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at asc")
	})
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}
	if err := query.Order("name asc").Find(&items).Error; err != nil {
		return nil, err
	}

	s.cache.SetMenu(ctx, key, items)
	return items, nil
}

func (s *CatalogService) GetMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GalleryImageInput describes one gallery image.
type GalleryImageInput struct {
	URL     string
	Caption string
}

// MenuItemInput describes a new menu item and its initial gallery.
type MenuItemInput struct {
	CategoryID  uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	IsAvailable bool
	Images      []GalleryImageInput
}

// MenuItemUpdate carries optional menu item changes.
type MenuItemUpdate struct {
	CategoryID  *uuid.UUID
	Name        *string
	Description *string
	Price       *decimal.Decimal
	IsAvailable *bool
}

func (s *CatalogService) CreateMenuItem(ctx context.Context, in MenuItemInput) (*models.MenuItem, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrEmptyName
	}
	if in.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	item := models.MenuItem{
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		IsAvailable: in.IsAvailable,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCategory(tx, in.CategoryID); err != nil {
			return err
		}
		if err := tx.Omit("Images").Create(&item).Error; err != nil {
			return err
		}

		for _, img := range in.Images {
			if strings.TrimSpace(img.URL) == "" {
				continue
			}
			image := models.GalleryImage{MenuItemID: item.ID, URL: img.URL, Caption: img.Caption}
			if err := tx.Create(&image).Error; err != nil {
				return err
			}
			item.Images = append(item.Images, image)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	return &item, nil
}

// UpdateMenuItem changes catalog fields. Existing orders keep the price they were placed at.
func (s *CatalogService) UpdateMenuItem(ctx context.Context, id uuid.UUID, upd MenuItemUpdate) (*models.MenuItem, error) {
	updates := map[string]interface{}{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		updates["name"] = name
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.Price != nil {
		if upd.Price.IsNegative() {
			return nil, ErrInvalidPrice
		}
		updates["price"] = *upd.Price
	}
	if upd.IsAvailable != nil {
		updates["is_available"] = *upd.IsAvailable
	}
	if upd.CategoryID != nil {
		updates["category_id"] = *upd.CategoryID
	}
	if len(updates) == 0 {
		return nil, ErrNothingToUpdate
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if upd.CategoryID != nil {
			if err := requireCategory(tx, *upd.CategoryID); err != nil {
				return err
			}
		}
		res := tx.Model(&models.MenuItem{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMenuItemNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	return s.GetMenuItem(ctx, id)
}

// DeleteMenuItem removes a menu item and its gallery.
func (s *CatalogService) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_item_id = ?", id).Delete(&models.GalleryImage{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.MenuItem{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMenuItemNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx)
	return nil
}

// AddGalleryImage attaches an image to a menu item.
func (s *CatalogService) AddGalleryImage(ctx context.Context, menuItemID uuid.UUID, in GalleryImageInput) (*models.GalleryImage, error) {
	if strings.TrimSpace(in.URL) == "" {
		return nil, ErrMissingURL
	}

	image := models.GalleryImage{MenuItemID: menuItemID, URL: strings.TrimSpace(in.URL), Caption: in.Caption}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MenuItem{}).Where("id = ?", menuItemID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrMenuItemNotFound
		}
		return tx.Create(&image).Error
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	return &image, nil
}

// UpdateGalleryImage changes an image's URL or caption.
func (s *CatalogService) UpdateGalleryImage(ctx context.Context, id uuid.UUID, url, caption *string) (*models.GalleryImage, error) {
	updates := map[string]interface{}{}
	if url != nil && strings.TrimSpace(*url) != "" {
		updates["url"] = strings.TrimSpace(*url)
	}
	if caption != nil {
		updates["caption"] = *caption
	}
	if len(updates) == 0 {
		return nil, ErrNothingToUpdate
	}

	db := s.db.WithContext(ctx)
	res := db.Model(&models.GalleryImage{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrGalleryImageNotFound
	}

	var image models.GalleryImage
	if err := db.First(&image, "id = ?", id).Error; err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	return &image, nil
}

// DeleteGalleryImage removes one image.
func (s *CatalogService) DeleteGalleryImage(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.GalleryImage{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGalleryImageNotFound
	}

	s.cache.Invalidate(ctx)
	return nil
}

func requireCategory(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
