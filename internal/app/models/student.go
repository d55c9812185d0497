package models

import "time"

// Student is a resident of a hostel. RoomID and BedNumber are set only while Status is ACTIVE
// and are written exclusively by the occupancy service.
type Student struct {
	ID              int64         `json:"id" db:"id" example:"1"`
	UserID          int64         `json:"userId" db:"user_id" example:"5"`
	HostelID        int64         `json:"hostelId" db:"hostel_id" example:"1"`
	FullName        string        `json:"fullName" db:"full_name" example:"Ahmed Khan"`
	CNIC            string        `json:"cnic" db:"cnic" example:"35202-1234567-1"`
	Phone           string        `json:"phone,omitempty" db:"phone"`
	GuardianName    string        `json:"guardianName,omitempty" db:"guardian_name"`
	GuardianPhone   string        `json:"guardianPhone,omitempty" db:"guardian_phone"`
	Institute       string        `json:"institute,omitempty" db:"institute"`
	RoomID          *int64        `json:"roomId,omitempty" db:"room_id"`
	BedNumber       *string       `json:"bedNumber,omitempty" db:"bed_number"`
	MonthlyFee      int64         `json:"monthlyFee" db:"monthly_fee" example:"15000"`
	SecurityDeposit int64         `json:"securityDeposit" db:"security_deposit" example:"10000"`
	FeeStatus       FeeStatus     `json:"feeStatus" db:"fee_status" example:"DUE"`
	Status          StudentStatus `json:"status" db:"status" example:"ACTIVE"`
	AdmittedAt      time.Time     `json:"admittedAt" db:"admitted_at"`
	LeftAt          *time.Time    `json:"leftAt,omitempty" db:"left_at"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at"`
}

// HasBed reports whether the student currently holds a (room, bed) pair
func (s *Student) HasBed() bool {
	return s.RoomID != nil && s.BedNumber != nil
}

// IsActive reports whether the student currently resides in the hostel
func (s *Student) IsActive() bool {
	return s.Status == StudentActive
}
