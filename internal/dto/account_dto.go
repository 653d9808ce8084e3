package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=1"`
}

// UpdateProfileRequest applies only the fields that are set.
type UpdateProfileRequest struct {
	Username        *string `json:"username"         validate:"omitempty,min=3,max=150"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password"     validate:"omitempty,min=6,max=72"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"` // seconds
	User      UserResponse `json:"user"`
}

type ProfileResponse struct {
	User  UserResponse `json:"user"`
	Stats OwnerStats   `json:"stats"`
}

type UpdateProfileResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message,omitempty"`
}
