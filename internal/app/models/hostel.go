package models

import "time"

// Hostel is a tenant of the platform
type Hostel struct {
	ID        int64     `json:"id" db:"id" example:"1"`
	Name      string    `json:"name" db:"name" example:"Iqbal Hall"`
	Address   string    `json:"address" db:"address"`
	OwnerID   *int64    `json:"ownerId,omitempty" db:"owner_id"`
	IsActive  bool      `json:"isActive" db:"is_active" example:"true"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
