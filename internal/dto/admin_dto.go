package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type UpdateUserRequest struct {
	Role     string `json:"role"      validate:"omitempty,oneof=User Admin SuperAdmin user admin superadmin"`
	IsActive *bool  `json:"is_active"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AdminUserResponse struct {
	UserResponse
	ProductCount int `json:"product_count"`
}

type TrashedUserResponse struct {
	UserResponse
	DeletedAt *time.Time `json:"deleted_at"`
	DeletedBy *string    `json:"deleted_by"`
}

type TrashedProductResponse struct {
	ProductResponse
	DeletedAt *time.Time `json:"deleted_at"`
}

type TrashResponse struct {
	Users    []TrashedUserResponse    `json:"users"`
	Products []TrashedProductResponse `json:"products"`
}

type TrashUserResponse struct {
	Message         string `json:"message"`
	ProductsTrashed int64  `json:"products_trashed"`
}

type RestoreUserResponse struct {
	Message          string `json:"message"`
	ProductsRestored int64  `json:"products_restored"`
}

type PurgeResponse struct {
	Message  string `json:"message"`
	Users    int64  `json:"users"`
	Products int64  `json:"products"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
