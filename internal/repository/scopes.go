package repository

import (
	"errors"

	"gorm.io/gorm"
)

// IsNotFound reports whether err means "no such row".
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// activeUsers and friends implement the default (active) and trash scopes.
// Column names are table-qualified so the scopes survive joins.
func activeUsers(db *gorm.DB) *gorm.DB { return db.Where("users.is_deleted = ?", false) }

func trashedUsers(db *gorm.DB) *gorm.DB { return db.Where("users.is_deleted = ?", true) }

func activeProducts(db *gorm.DB) *gorm.DB { return db.Where("products.is_deleted = ?", false) }

func trashedProducts(db *gorm.DB) *gorm.DB { return db.Where("products.is_deleted = ?", true) }
