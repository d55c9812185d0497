package models

import "time"

// Payment is a single billing record for one student, one period and one amount.
// "Invoice" and "payment" refer to the same record.
type Payment struct {
	ID            int64         `json:"id" db:"id" example:"1"`
	StudentID     int64         `json:"studentId" db:"student_id" example:"1"`
	HostelID      int64         `json:"hostelId" db:"hostel_id" example:"1"`
	Amount        int64         `json:"amount" db:"amount" example:"15000"`
	Month         int           `json:"month" db:"month" example:"3"`
	Year          int           `json:"year" db:"year" example:"2025"`
	PaymentType   PaymentType   `json:"paymentType" db:"payment_type" example:"RENT"`
	Status        PaymentStatus `json:"status" db:"status" example:"UNPAID"`
	IsVerified    bool          `json:"isVerified" db:"is_verified"`
	PaymentProof  *string       `json:"paymentProof,omitempty" db:"payment_proof"`
	ReceiptNumber string        `json:"receiptNumber" db:"receipt_number" example:"INV-202503-000001"`
	Description   string        `json:"description,omitempty" db:"description"`
	VerifiedBy    *int64        `json:"verifiedBy,omitempty" db:"verified_by"`
	VerifiedAt    *time.Time    `json:"verifiedAt,omitempty" db:"verified_at"`
	PaidAt        *time.Time    `json:"paidAt,omitempty" db:"paid_at"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

// IsTerminal reports whether the payment can no longer change state
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentCompleted
}

// PaymentUpdate carries the fields a status transition writes. Nil fields are left untouched.
type PaymentUpdate struct {
	Status       PaymentStatus
	IsVerified   *bool
	PaymentProof *string
	VerifiedBy   *int64
	VerifiedAt   *time.Time
	PaidAt       *time.Time
}
