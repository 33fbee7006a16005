package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleStaff   UserRole = "staff"
	RoleAdmin   UserRole = "admin"
)

// AllRoles is the closed set of roles a user may hold
var AllRoles = []UserRole{RoleAdmin, RoleStaff, RoleStudent}

// IsValid reports whether r is one of AllRoles
func (r UserRole) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsReviewer reports whether the role may review and search proofs
func (r UserRole) IsReviewer() bool {
	return r == RoleStaff || r == RoleAdmin
}

type User struct {
	ID    uint     `json:"id" gorm:"primaryKey"`
	Name  string   `json:"name" gorm:"not null;size:100"`
	Email string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role  UserRole `json:"role" gorm:"not null;size:20;default:student;index"`

	// bcrypt hash, never serialized
	Password string `json:"-" gorm:"column:password;not null;size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}

// PublicUser is the projection returned to clients after login
type PublicUser struct {
	ID    uint     `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

// UserSummary is one row of the admin user listing
type UserSummary struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
