package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a listing owned by exactly one User.
// ImagePath is a public path such as /images/products/<uuid>.png; the file is not owned by the DB.
type Product struct {
	ID        uint            `gorm:"primaryKey"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity  int             `gorm:"not null;default:0"`
	ImagePath *string
	UserID    uint      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
	IsDeleted bool `gorm:"not null;default:false;index"`
	DeletedAt *time.Time

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Value is price × quantity.
func (p Product) Value() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}
