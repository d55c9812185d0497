package models

import (
	"time"
)

// User is a login account. Every student has one; staff accounts have no student record.
type User struct {
	ID          int64      `json:"id" db:"id" example:"1"`
	Username    string     `json:"username" db:"username" example:"ahmedkhan4321"`
	Password    string     `json:"-" db:"password"`
	FullName    string     `json:"fullName" db:"full_name" example:"Ahmed Khan"`
	RoleType    RoleType   `json:"roleType" db:"role_type" example:"STUDENT"`
	HostelID    *int64     `json:"hostelId,omitempty" db:"hostel_id"`
	IsActive    bool       `json:"isActive" db:"is_active" example:"true"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}
