package repository

import (
	"context"
	"time"

	"storekeep/internal/model"

	"gorm.io/gorm"
)

// UserRepository defines the data access contract for users.
// Methods without a Tx suffix use the active scope unless their name says otherwise.
// Tx methods must be called with the transaction handle passed to a Transaction callback.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByIDIncludingDeleted(ctx context.Context, id uint) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// UsernameTaken checks every non-purged user, trashed ones included.
	UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error)
	HasSuperAdmin(ctx context.Context) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	ListTrashed(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error

	MarkDeletedTx(tx *gorm.DB, id, actorID uint, at time.Time) error
	RestoreTx(tx *gorm.DB, id uint) error
	DeleteTx(tx *gorm.DB, ids ...uint) (int64, error)

	// Transaction runs fn in one database transaction; any error rolls everything back.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepo) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Scopes(activeUsers).First(&u, id).Error
	return &u, err
}

func (r *userRepo) FindByIDIncludingDeleted(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	return &u, err
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Scopes(activeUsers).Where("username = ?", username).First(&u).Error
	return &u, err
}

func (r *userRepo) UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.User{}).Where("username = ?", username)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *userRepo) HasSuperAdmin(ctx context.Context) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", model.RoleSuperAdmin).Count(&n).Error
	return n > 0, err
}

// List returns active users newest first with their active products loaded.
func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Scopes(activeUsers).
		Preload("Products", activeProducts).
		Order("created_at DESC, id DESC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListTrashed(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Scopes(trashedUsers).
		Preload("DeletedByUser").
		Order("deleted_at DESC, id DESC").
		Find(&users).Error
	return users, err
}

// Update writes the editable columns of an active user. Trash columns are never
// written, so a stale copy cannot bring a trashed row back.
func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	res := r.db.WithContext(ctx).Model(u).Scopes(activeUsers).
		Select("username", "password", "role", "is_active", "updated_at").
		Updates(u)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) MarkDeletedTx(tx *gorm.DB, id, actorID uint, at time.Time) error {
	res := tx.Model(&model.User{}).Scopes(activeUsers).Where("id = ?", id).Updates(map[string]interface{}{
		"is_deleted":         true,
		"deleted_at":         at,
		"deleted_by_user_id": actorID,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) RestoreTx(tx *gorm.DB, id uint) error {
	res := tx.Model(&model.User{}).Scopes(trashedUsers).Where("id = ?", id).Updates(map[string]interface{}{
		"is_deleted":         false,
		"deleted_at":         nil,
		"deleted_by_user_id": nil,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) DeleteTx(tx *gorm.DB, ids ...uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := tx.Where("id IN ?", ids).Delete(&model.User{})
	return res.RowsAffected, res.Error
}

func (r *userRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
