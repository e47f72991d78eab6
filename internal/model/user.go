package model

import "time"

// Role is the authorization role assigned to a user.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleStoreManager Role = "store_manager"
	RoleCustomer     Role = "customer"
)

// Roles lists every recognised role.
var Roles = []Role{RoleAdmin, RoleStoreManager, RoleCustomer}

// ParseRole returns the Role matching s, or false when s is not a recognised role.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// User represents an authenticated user in the system.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:50;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"size:20;not null;default:'customer'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
