package model

import (
	"time"
)

// User is an account. Trashed users keep their row (and username) until purged.
type User struct {
	ID              uint      `gorm:"primaryKey"`
	Username        string    `gorm:"type:varchar(150);uniqueIndex;not null"`
	Password        string    `gorm:"not null"`
	Role            Role      `gorm:"type:varchar(20);not null;default:'User'"`
	IsActive        bool      `gorm:"not null;default:true"`
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time
	IsDeleted       bool `gorm:"not null;default:false;index"`
	DeletedAt       *time.Time
	DeletedByUserID *uint
	DeletedByUser   *User `gorm:"foreignKey:DeletedByUserID;constraint:OnDelete:SET NULL"`

	Products []Product `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
