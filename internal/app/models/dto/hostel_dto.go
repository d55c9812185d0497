package dto

import "github.com/yigit/hostelhub/internal/app/models"

// CreateHostelRequest is the payload for registering a hostel
type CreateHostelRequest struct {
	Name    string `json:"name" binding:"required,min=2,max=120"`
	Address string `json:"address" binding:"max=255"`
	OwnerID *int64 `json:"ownerId,omitempty" binding:"omitempty,min=1"`
}

// UpdateHostelStatusRequest toggles whether a hostel takes part in billing runs
type UpdateHostelStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// CreateRoomRequest is the payload for adding a room to a hostel
type CreateRoomRequest struct {
	RoomNumber string `json:"roomNumber" binding:"required,max=20"`
	TotalBeds  int    `json:"totalBeds" binding:"required,min=1,max=50"`
}

// ResizeRoomRequest changes the bed capacity of a room
type ResizeRoomRequest struct {
	TotalBeds int `json:"totalBeds" binding:"required,min=1,max=50"`
}

// RoomView is the read-only projection of a room exposed to reporting and the UI
type RoomView struct {
	ID            int64   `json:"id" example:"1"`
	HostelID      int64   `json:"hostelId" example:"1"`
	RoomNumber    string  `json:"roomNumber" example:"A-101"`
	TotalBeds     int     `json:"totalBeds" example:"3"`
	OccupiedBeds  int     `json:"occupiedBeds" example:"2"`
	AvailableBeds int     `json:"availableBeds" example:"1"`
	OccupancyRate float64 `json:"occupancyRate" example:"66.67"`
}

// NewRoomView derives the availability fields from a room
func NewRoomView(room *models.Room) RoomView {
	return RoomView{
		ID:            room.ID,
		HostelID:      room.HostelID,
		RoomNumber:    room.RoomNumber,
		TotalBeds:     room.TotalBeds,
		OccupiedBeds:  room.OccupiedBeds,
		AvailableBeds: room.AvailableBeds(),
		OccupancyRate: room.OccupancyRate(),
	}
}
