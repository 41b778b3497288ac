package model

import "time"

// Roles known to the application. Every protected route declares which of
// these it accepts.
const (
	RoleUser       = "user"
	RoleStoreOwner = "store_owner"
	RoleAdmin      = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleStoreOwner, RoleAdmin:
		return true
	}
	return false
}

// User represents an account stored in the database. The password column
// only ever holds a bcrypt hash and is excluded from JSON responses.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(60)"`
	Email     string    `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password  string    `json:"-" gorm:"type:varchar(255)"`
	Address   string    `json:"address" gorm:"type:varchar(400)"`
	Role      string    `json:"role" gorm:"type:varchar(20);not null;default:'user';index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
