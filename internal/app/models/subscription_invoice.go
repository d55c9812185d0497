package models

import "time"

// HostelSubscriptionInvoice is the platform fee a hostel owes for one month.
// It is a separate ledger from student rent.
type HostelSubscriptionInvoice struct {
	ID                 int64              `json:"id" db:"id"`
	HostelID           int64              `json:"hostelId" db:"hostel_id"`
	Month              int                `json:"month" db:"month" example:"3"`
	Year               int                `json:"year" db:"year" example:"2025"`
	ActiveStudentCount int                `json:"activeStudentCount" db:"active_student_count"`
	RatePerStudent     int64              `json:"ratePerStudent" db:"rate_per_student"`
	Amount             int64              `json:"amount" db:"amount"`
	Status             SubscriptionStatus `json:"status" db:"status" example:"PENDING"`
	PaidAt             *time.Time         `json:"paidAt,omitempty" db:"paid_at"`
	CreatedAt          time.Time          `json:"createdAt" db:"created_at"`
}
