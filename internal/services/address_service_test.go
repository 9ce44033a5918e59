package services

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/logging"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/testutil"
)

func countDefaults(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Address{}).Where("user_id = ? AND is_default = ?", userID, true).Count(&n).Error)
	return n
}

func TestCreateDefaultAddressReplacesPrevious(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAddressService(db, logging.Discard())
	ctx := context.Background()
	user := testutil.CreateProfile(t, db, "wati", models.RoleCustomer)

	home, err := svc.Create(ctx, user.ID, AddressInput{Label: "Home", Street: "Jl. Sudirman 5", City: "Jakarta", IsDefault: true})
	require.NoError(t, err)
	office, err := svc.Create(ctx, user.ID, AddressInput{Label: "Office", Street: "Jl. Thamrin 9", City: "Jakarta", IsDefault: true})
	require.NoError(t, err)

	assert.EqualValues(t, 1, countDefaults(t, db, user.ID))

	list, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, office.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.Equal(t, home.ID, list[1].ID)
	assert.False(t, list[1].IsDefault)
}

func TestUpdateAddressDefaultFlag(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAddressService(db, logging.Discard())
	ctx := context.Background()
	user := testutil.CreateProfile(t, db, "rudi", models.RoleCustomer)
	home := testutil.CreateAddress(t, db, user.ID, "Home", true)
	kos := testutil.CreateAddress(t, db, user.ID, "Kos", false)

	yes, no := true, false
	updated, err := svc.Update(ctx, user.ID, kos.ID, AddressUpdate{IsDefault: &yes})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)
	assert.EqualValues(t, 1, countDefaults(t, db, user.ID))

	var reloaded models.Address
	require.NoError(t, db.First(&reloaded, "id = ?", home.ID).Error)
	assert.False(t, reloaded.IsDefault)

	_, err = svc.Update(ctx, user.ID, kos.ID, AddressUpdate{IsDefault: &no})
	require.NoError(t, err)
	assert.Zero(t, countDefaults(t, db, user.ID))

	city := "Bogor"
	updated, err = svc.Update(ctx, user.ID, home.ID, AddressUpdate{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Bogor", updated.City)
	assert.Equal(t, home.Label, updated.Label)
}

func TestAddressScopedToOwner(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAddressService(db, logging.Discard())
	ctx := context.Background()
	owner := testutil.CreateProfile(t, db, "owner", models.RoleCustomer)
	intruder := testutil.CreateProfile(t, db, "intruder", models.RoleCustomer)
	address := testutil.CreateAddress(t, db, owner.ID, "Home", false)

	label := "Mine now"
	_, err := svc.Update(ctx, intruder.ID, address.ID, AddressUpdate{Label: &label})
	assert.ErrorIs(t, err, ErrAddressNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, intruder.ID, address.ID), ErrAddressNotFound)

	_, err = svc.Update(ctx, owner.ID, address.ID, AddressUpdate{})
	assert.ErrorIs(t, err, ErrNothingToUpdate)

	_, err = svc.Create(ctx, uuid.New(), AddressInput{Label: "Ghost", Street: "x", City: "y"})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestDeleteAddressReferencedByOrder(t *testing.T) {
	f := newOrderFixture(t)
	svc := NewAddressService(f.db, logging.Discard())
	ctx := context.Background()

	_, err := f.place(t, OrderLine{MenuItemID: f.itemA.ID, Quantity: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, f.user.ID, f.address.ID), ErrInUse)

	stranger := testutil.CreateProfile(t, f.db, "stranger", models.RoleCustomer)
	assert.ErrorIs(t, svc.Delete(ctx, stranger.ID, f.address.ID), ErrAddressNotFound)

	spare := testutil.CreateAddress(t, f.db, f.user.ID, "Spare", false)
	require.NoError(t, svc.Delete(ctx, f.user.ID, spare.ID))
}

func TestAtMostOneDefaultAcrossOperations(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAddressService(db, logging.Discard())
	ctx := context.Background()
	user := testutil.CreateProfile(t, db, "acak", models.RoleCustomer)

	rng := rand.New(rand.NewSource(7))
	var ids []uuid.UUID
	for step := 0; step < 40; step++ {
		flag := rng.Intn(2) == 0
		if len(ids) == 0 || rng.Intn(3) == 0 {
			address, err := svc.Create(ctx, user.ID, AddressInput{Label: "A", Street: "S", City: "C", IsDefault: flag})
			require.NoError(t, err)
			ids = append(ids, address.ID)
		} else {
			_, err := svc.Update(ctx, user.ID, ids[rng.Intn(len(ids))], AddressUpdate{IsDefault: &flag})
			require.NoError(t, err)
		}
		require.LessOrEqual(t, countDefaults(t, db, user.ID), int64(1), "step %d", step)
	}
}

func TestPartialIndexRejectsSecondDefault(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateProfile(t, db, "raw", models.RoleCustomer)
	testutil.CreateAddress(t, db, user.ID, "Home", true)

	err := db.Create(&models.Address{UserID: user.ID, Label: "Other", Street: "S", City: "C", IsDefault: true}).Error
	assert.Error(t, err)
}
