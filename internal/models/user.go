package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleEmployee       UserRole = "EMPLOYEE"
	RoleProjectManager UserRole = "PROJECT_MANAGER"
	RoleAdmin          UserRole = "ADMIN"
)

// Privileged reports whether the role may act on behalf of other employees.
func (r UserRole) Privileged() bool {
	return r == RoleAdmin || r == RoleProjectManager
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
