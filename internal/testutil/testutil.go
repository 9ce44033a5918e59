// Package testutil provides an in-process database and fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/database"
	"github.com/example/foodorder/internal/logging"
	"github.com/example/foodorder/internal/models"
)

// NewDB opens a migrated SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	conn, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(logging.Discard()))
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(conn))
	return conn
}

// CreateProfile inserts a profile with the given role.
func CreateProfile(t *testing.T, db *gorm.DB, name string, role models.Role) models.Profile {
	t.Helper()

	email := name + "@example.com"
	profile := models.Profile{Name: name, Email: &email, Role: role}
	require.NoError(t, db.Create(&profile).Error)
	return profile
}

// CreateAddress inserts an address owned by userID.
func CreateAddress(t *testing.T, db *gorm.DB, userID uuid.UUID, label string, isDefault bool) models.Address {
	t.Helper()

	address := models.Address{
		UserID:    userID,
		Label:     label,
		Street:    "Jl. Merdeka 1",
		City:      "Bandung",
		IsDefault: isDefault,
	}
	require.NoError(t, db.Create(&address).Error)
	return address
}

// CreateCategory inserts a category.
func CreateCategory(t *testing.T, db *gorm.DB, name string) models.Category {
	t.Helper()

	category := models.Category{Name: name}
	require.NoError(t, db.Create(&category).Error)
	return category
}

// CreateMenuItem inserts an available menu item priced at price.
func CreateMenuItem(t *testing.T, db *gorm.DB, categoryID uuid.UUID, name, price string) models.MenuItem {
	t.Helper()

	item := models.MenuItem{
		CategoryID:  categoryID,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		IsAvailable: true,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}
