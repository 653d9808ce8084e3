package repository

import (
	"context"
	"time"

	"storekeep/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserAggregate is one row of a per-owner inventory aggregate.
type UserAggregate struct {
	UserID       uint
	Username     string
	ProductCount int64
	TotalValue   decimal.Decimal
}

// OwnerStats summarizes one owner's active products.
type OwnerStats struct {
	ProductCount int64
	TotalValue   decimal.Decimal
	AveragePrice decimal.Decimal
}

// RoleCount is the number of active users holding a role.
type RoleCount struct {
	Role  model.Role
	Count int64
}

// ReportRepository runs read-only aggregate queries. Nothing here is cached.
type ReportRepository interface {
	CountUsers(ctx context.Context) (int64, error)
	CountProducts(ctx context.Context) (int64, error)
	CountUsersByRole(ctx context.Context) ([]RoleCount, error)
	CountActiveUsers(ctx context.Context) (int64, error)
	CountDeletedUsers(ctx context.Context) (int64, error)
	ProductCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error)
	TopUsersByProductCount(ctx context.Context, limit int) ([]UserAggregate, error)
	TopUsersByValue(ctx context.Context, limit int) ([]UserAggregate, error)
	OwnerStats(ctx context.Context, ownerID uint) (OwnerStats, error)
	// DatabaseSize returns the size in bytes, or 0 when the dialect cannot report it.
	DatabaseSize(ctx context.Context) (int64, error)
}

type reportRepo struct{ db *gorm.DB }

func NewReportRepository(db *gorm.DB) ReportRepository { return &reportRepo{db: db} }

func (r *reportRepo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Scopes(activeUsers).Count(&n).Error
	return n, err
}

func (r *reportRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Scopes(activeProducts).Count(&n).Error
	return n, err
}

func (r *reportRepo) CountUsersByRole(ctx context.Context) ([]RoleCount, error) {
	var rows []RoleCount
	err := r.db.WithContext(ctx).Model(&model.User{}).Scopes(activeUsers).
		Select("role, COUNT(*) AS count").
		Group("role").
		Order("role ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) CountActiveUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Scopes(activeUsers).
		Where("is_active = ?", true).Count(&n).Error
	return n, err
}

func (r *reportRepo) CountDeletedUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Scopes(trashedUsers).Count(&n).Error
	return n, err
}

func (r *reportRepo) ProductCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error) {
	var rows []model.Product
	err := r.db.WithContext(ctx).Model(&model.Product{}).Scopes(activeProducts).
		Select("id, created_at").
		Where("created_at >= ?", since).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(rows))
	for i, p := range rows {
		out[i] = p.CreatedAt
	}
	return out, nil
}

func (r *reportRepo) ownerAggregates(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("users").
		Select("users.id AS user_id, users.username AS username, COUNT(products.id) AS product_count, " +
			"COALESCE(SUM(products.price * products.quantity), 0) AS total_value").
		Joins("JOIN products ON products.user_id = users.id AND products.is_deleted = ?", false).
		Scopes(activeUsers).
		Group("users.id, users.username")
}

func (r *reportRepo) TopUsersByProductCount(ctx context.Context, limit int) ([]UserAggregate, error) {
	var rows []UserAggregate
	err := r.ownerAggregates(ctx).
		Order("product_count DESC, users.id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) TopUsersByValue(ctx context.Context, limit int) ([]UserAggregate, error) {
	var rows []UserAggregate
	err := r.ownerAggregates(ctx).
		Order("total_value DESC, users.id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) OwnerStats(ctx context.Context, ownerID uint) (OwnerStats, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Scopes(activeProducts).
		Select("id, price, quantity").
		Where("user_id = ?", ownerID).
		Find(&products).Error
	if err != nil {
		return OwnerStats{}, err
	}
	stats := OwnerStats{ProductCount: int64(len(products)), TotalValue: decimal.Zero, AveragePrice: decimal.Zero}
	if len(products) == 0 {
		return stats, nil
	}
	sumPrice := decimal.Zero
	for _, p := range products {
		stats.TotalValue = stats.TotalValue.Add(p.Value())
		sumPrice = sumPrice.Add(p.Price)
	}
	stats.AveragePrice = sumPrice.Div(decimal.NewFromInt(stats.ProductCount)).Round(2)
	return stats, nil
}

func (r *reportRepo) DatabaseSize(ctx context.Context) (int64, error) {
	if r.db.Dialector.Name() != "postgres" {
		return 0, nil
	}
	var size int64
	err := r.db.WithContext(ctx).Raw("SELECT pg_database_size(current_database())").Scan(&size).Error
	return size, err
}
