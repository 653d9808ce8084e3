package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ProductRequest is bound from multipart form fields; the image travels as a separate file part.
type ProductRequest struct {
	Name     string          `form:"name"     json:"name"     validate:"required,min=1,max=200"`
	Price    decimal.Decimal `form:"price"    json:"price"    validate:"min=0"`
	Quantity int             `form:"quantity" json:"quantity" validate:"min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Value     decimal.Decimal `json:"value"`
	ImagePath *string         `json:"image_path"`
	OwnerID   uint            `json:"owner_id"`
	OwnerName string          `json:"owner_name,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OwnerStats summarizes one owner's active products.
type OwnerStats struct {
	ProductCount int64           `json:"product_count"`
	TotalValue   decimal.Decimal `json:"total_value"`
	AveragePrice decimal.Decimal `json:"average_price"`
}
