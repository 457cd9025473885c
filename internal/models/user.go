package models

import "time"

// UserRole scopes what a login represents. Only authentication is modelled;
// permissions stay with the consuming layer.
type UserRole string

// Known user roles.
const (
	RoleCoordinator UserRole = "COORDINATOR"
	RoleSupervisor  UserRole = "SUPERVISOR"
	RoleStudent     UserRole = "STUDENT"
)

// User is an account able to authenticate against the API.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserInfo is the public projection of a user returned with tokens.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}
