package models

// RoleType defines the user role type
type RoleType string

const (
	RoleAdmin   RoleType = "ADMIN"
	RoleOwner   RoleType = "OWNER"
	RoleManager RoleType = "MANAGER"
	RoleStudent RoleType = "STUDENT"
)

// IsStaff reports whether the role may act on behalf of a hostel
func (r RoleType) IsStaff() bool {
	return r == RoleAdmin || r == RoleOwner || r == RoleManager
}

// StudentStatus is the residency status of a student
type StudentStatus string

const (
	StudentActive   StudentStatus = "ACTIVE"
	StudentLeft     StudentStatus = "LEFT"
	StudentExpelled StudentStatus = "EXPELLED"
)

// FeeStatus is a denormalized display hint derived from the student's invoices.
// Only the billing and payment services write it.
type FeeStatus string

const (
	FeePaid    FeeStatus = "PAID"
	FeeDue     FeeStatus = "DUE"
	FeePartial FeeStatus = "PARTIAL"
	FeeOverdue FeeStatus = "OVERDUE"
)

// PaymentStatus is the state of a payment/invoice
type PaymentStatus string

const (
	PaymentUnpaid    PaymentStatus = "UNPAID"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentOverdue   PaymentStatus = "OVERDUE"
)

// PaymentType classifies what a payment is for
type PaymentType string

const (
	PaymentRent      PaymentType = "RENT"
	PaymentAdmission PaymentType = "ADMISSION"
	PaymentFine      PaymentType = "FINE"
	PaymentOther     PaymentType = "OTHER"
)

// Valid reports whether t is a known payment type
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentRent, PaymentAdmission, PaymentFine, PaymentOther:
		return true
	}
	return false
}

// SubscriptionStatus is the state of a platform subscription invoice
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "PENDING"
	SubscriptionCompleted SubscriptionStatus = "COMPLETED"
)
