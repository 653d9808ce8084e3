package repository

import (
	"context"
	"time"

	"storekeep/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByIDIncludingDeleted(ctx context.Context, id uint) (*model.Product, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]model.Product, error)
	// ListAll returns active products with their owner, newest first.
	ListAll(ctx context.Context) ([]model.Product, error)
	ListTrashed(ctx context.Context) ([]model.Product, error)
	// ImagePathsByOwner covers every row the owner has, trashed or not.
	ImagePathsByOwner(ctx context.Context, ownerIDs ...uint) ([]string, error)
	Update(ctx context.Context, p *model.Product) error

	// Used inside transactions: callers must pass the tx instance
	MarkDeletedTx(tx *gorm.DB, id uint, at time.Time) error
	RestoreTx(tx *gorm.DB, id uint) error
	MarkDeletedByOwnerTx(tx *gorm.DB, ownerID uint, at time.Time) (int64, error)
	RestoreByOwnerTx(tx *gorm.DB, ownerID uint) (int64, error)
	DeleteTx(tx *gorm.DB, ids ...uint) (int64, error)
	DeleteByOwnerTx(tx *gorm.DB, ownerIDs ...uint) (int64, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Scopes(activeProducts).Preload("User").First(&p, id).Error
	return &p, err
}

func (r *productRepo) FindByIDIncludingDeleted(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *productRepo) ListByOwner(ctx context.Context, ownerID uint) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Scopes(activeProducts).
		Where("user_id = ?", ownerID).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) ListAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Scopes(activeProducts).
		Preload("User").
		Order("id DESC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) ListTrashed(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Scopes(trashedProducts).
		Preload("User").
		Order("deleted_at DESC, id DESC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) ImagePathsByOwner(ctx context.Context, ownerIDs ...uint) ([]string, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	var paths []string
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("user_id IN ? AND image_path IS NOT NULL AND image_path <> ''", ownerIDs).
		Pluck("image_path", &paths).Error
	return paths, err
}

// Update writes the editable columns of an active product.
func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	res := r.db.WithContext(ctx).Model(p).Scopes(activeProducts).
		Select("name", "price", "quantity", "image_path", "updated_at").
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) MarkDeletedTx(tx *gorm.DB, id uint, at time.Time) error {
	res := tx.Model(&model.Product{}).Scopes(activeProducts).Where("id = ?", id).Updates(map[string]interface{}{
		"is_deleted": true,
		"deleted_at": at,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) RestoreTx(tx *gorm.DB, id uint) error {
	res := tx.Model(&model.Product{}).Scopes(trashedProducts).Where("id = ?", id).Updates(map[string]interface{}{
		"is_deleted": false,
		"deleted_at": nil,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) MarkDeletedByOwnerTx(tx *gorm.DB, ownerID uint, at time.Time) (int64, error) {
	res := tx.Model(&model.Product{}).Scopes(activeProducts).Where("user_id = ?", ownerID).Updates(map[string]interface{}{
		"is_deleted": true,
		"deleted_at": at,
	})
	return res.RowsAffected, res.Error
}

func (r *productRepo) RestoreByOwnerTx(tx *gorm.DB, ownerID uint) (int64, error) {
	res := tx.Model(&model.Product{}).Scopes(trashedProducts).Where("user_id = ?", ownerID).Updates(map[string]interface{}{
		"is_deleted": false,
		"deleted_at": nil,
	})
	return res.RowsAffected, res.Error
}

func (r *productRepo) DeleteTx(tx *gorm.DB, ids ...uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := tx.Where("id IN ?", ids).Delete(&model.Product{})
	return res.RowsAffected, res.Error
}

func (r *productRepo) DeleteByOwnerTx(tx *gorm.DB, ownerIDs ...uint) (int64, error) {
	if len(ownerIDs) == 0 {
		return 0, nil
	}
	res := tx.Where("user_id IN ?", ownerIDs).Delete(&model.Product{})
	return res.RowsAffected, res.Error
}
