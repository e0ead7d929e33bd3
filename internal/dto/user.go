package dto

import "github.com/atempo-hq/workcal-api/internal/models"

// CreateUserRequest describes the user registration payload.
type CreateUserRequest struct {
	Username string          `json:"username" validate:"required,min=3,max=64"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role,omitempty"`
}

// UpdateUserRequest carries optional user mutations.
type UpdateUserRequest struct {
	Username *string          `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	Email    *string          `json:"email,omitempty" validate:"omitempty,email"`
	Password *string          `json:"password,omitempty" validate:"omitempty,min=8"`
	Role     *models.UserRole `json:"role,omitempty"`
}
