package models

import "time"

// Room holds the bed-capacity counters. OccupiedBeds is owned by the capacity ledger.
type Room struct {
	ID           int64     `json:"id" db:"id" example:"1"`
	HostelID     int64     `json:"hostelId" db:"hostel_id" example:"1"`
	RoomNumber   string    `json:"roomNumber" db:"room_number" example:"A-101"`
	TotalBeds    int       `json:"totalBeds" db:"total_beds" example:"3"`
	OccupiedBeds int       `json:"occupiedBeds" db:"occupied_beds" example:"2"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// AvailableBeds is totalBeds minus occupiedBeds, never negative
func (r *Room) AvailableBeds() int {
	if free := r.TotalBeds - r.OccupiedBeds; free > 0 {
		return free
	}
	return 0
}

// OccupancyRate is the occupied share of beds as a percentage rounded to two decimals
func (r *Room) OccupancyRate() float64 {
	if r.TotalBeds <= 0 {
		return 0
	}
	rate := float64(r.OccupiedBeds) * 100 / float64(r.TotalBeds)
	return float64(int64(rate*100+0.5)) / 100
}
