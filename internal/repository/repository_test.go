package repository

import (
	"context"
	"testing"
	"time"

	"storekeep/internal/model"
	"storekeep/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seed(t *testing.T, db *gorm.DB) (*model.User, *model.Product) {
	t.Helper()
	u := &model.User{Username: "alice", Password: "pw", Role: model.RoleUser, IsActive: true}
	require.NoError(t, db.Create(u).Error)
	p := &model.Product{Name: "lamp", Price: decimal.NewFromInt(5), Quantity: 2, UserID: u.ID}
	require.NoError(t, db.Create(p).Error)
	return u, p
}

func TestUpdate_WritesEditableColumns(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	users, products := NewUserRepository(db), NewProductRepository(db)
	u, p := seed(t, db)

	u.Username = "alicia"
	u.IsActive = false
	u.Role = model.RoleAdmin
	require.NoError(t, users.Update(ctx, u))

	img := "/images/products/a.png"
	p.Name = "desk lamp"
	p.Price = decimal.RequireFromString("7.25")
	p.Quantity = 0
	p.ImagePath = &img
	require.NoError(t, products.Update(ctx, p))

	gotU, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", gotU.Username)
	assert.False(t, gotU.IsActive)
	assert.Equal(t, model.RoleAdmin, gotU.Role)

	gotP, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "desk lamp", gotP.Name)
	assert.Equal(t, "7.25", gotP.Price.StringFixed(2))
	assert.Equal(t, 0, gotP.Quantity)
	require.NotNil(t, gotP.ImagePath)
	assert.Equal(t, img, *gotP.ImagePath)
}

func TestUpdate_StaleCopyDoesNotRestoreTrashedRows(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	users, products := NewUserRepository(db), NewProductRepository(db)
	actor := &model.User{Username: "root", Password: "pw", Role: model.RoleSuperAdmin, IsActive: true}
	require.NoError(t, db.Create(actor).Error)
	u, p := seed(t, db)

	staleU, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	staleP, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, users.Transaction(ctx, func(tx *gorm.DB) error {
		if err := users.MarkDeletedTx(tx, u.ID, actor.ID, time.Now()); err != nil {
			return err
		}
		_, err := products.MarkDeletedByOwnerTx(tx, u.ID, time.Now())
		return err
	}))

	staleU.Username = "renamed"
	assert.True(t, IsNotFound(users.Update(ctx, staleU)))
	staleP.Name = "renamed"
	assert.True(t, IsNotFound(products.Update(ctx, staleP)))

	gotU, err := users.FindByIDIncludingDeleted(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, gotU.IsDeleted)
	assert.NotNil(t, gotU.DeletedAt)
	require.NotNil(t, gotU.DeletedByUserID)
	assert.Equal(t, actor.ID, *gotU.DeletedByUserID)
	assert.Equal(t, "alice", gotU.Username)

	gotP, err := products.FindByIDIncludingDeleted(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, gotP.IsDeleted)
	assert.NotNil(t, gotP.DeletedAt)
	assert.Equal(t, "lamp", gotP.Name)
}

func TestUpdate_MissingRowIsNotFound(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	err := NewUserRepository(db).Update(ctx, &model.User{ID: 4242, Username: "ghost", Password: "pw", Role: model.RoleUser})
	assert.True(t, IsNotFound(err))
}
