package dto

import "github.com/yigit/hostelhub/internal/app/models"

// GenerateDuesRequest triggers the monthly billing run. Zero values mean the current month/year.
type GenerateDuesRequest struct {
	TargetMonth int `json:"targetMonth" binding:"omitempty,min=1,max=12"`
	TargetYear  int `json:"targetYear" binding:"omitempty,min=2000,max=2100"`
}

// BillingRunResult is the aggregated outcome of a billing run
type BillingRunResult struct {
	Month    int              `json:"month" example:"3"`
	Year     int              `json:"year" example:"2025"`
	Created  int              `json:"created" example:"42"`
	Skipped  int              `json:"skipped" example:"1"`
	Failed   int              `json:"failed" example:"0"`
	Failures []BillingFailure `json:"failures,omitempty"`
}

// BillingFailure records one student the run could not bill
type BillingFailure struct {
	HostelID  int64  `json:"hostelId"`
	StudentID int64  `json:"studentId"`
	Reason    string `json:"reason"`
}

// OverdueResult reports how many invoices were marked overdue
type OverdueResult struct {
	Month  int `json:"month"`
	Year   int `json:"year"`
	Marked int `json:"marked"`
}

// SubmitProofRequest attaches a proof reference to a payment. The payment ID comes from the path.
type SubmitProofRequest struct {
	ProofFileRef string `json:"proofFileRef" binding:"required,max=512"`
}

// CreateChargeRequest creates an ad-hoc invoice for a student
type CreateChargeRequest struct {
	StudentID   int64              `json:"studentId" binding:"required,min=1"`
	PaymentType models.PaymentType `json:"paymentType" binding:"required,oneof=ADMISSION FINE OTHER"`
	Amount      int64              `json:"amount" binding:"required,min=1"`
	Month       int                `json:"month" binding:"omitempty,min=1,max=12"`
	Year        int                `json:"year" binding:"omitempty,min=2000,max=2100"`
	Description string             `json:"description" binding:"max=255"`
}

// PaymentFilter narrows a payment list
type PaymentFilter struct {
	StudentID int64                `form:"-"`
	HostelID  int64                `form:"-"`
	Status    models.PaymentStatus `form:"status" binding:"omitempty,oneof=UNPAID PENDING COMPLETED OVERDUE"`
	Month     int                  `form:"month" binding:"omitempty,min=1,max=12"`
	Year      int                  `form:"year" binding:"omitempty,min=2000,max=2100"`
	Page      int                  `form:"page,default=1" binding:"min=1"`
	PageSize  int                  `form:"pageSize,default=10" binding:"min=1,max=100"`
}

// PaymentListResponse is a page of payments
type PaymentListResponse struct {
	Payments   []*models.Payment `json:"payments"`
	Pagination PaginationInfo    `json:"pagination"`
}

// SubscriptionRunResult reports a subscription invoice run
type SubscriptionRunResult struct {
	Month    int                                 `json:"month"`
	Year     int                                 `json:"year"`
	Created  []*models.HostelSubscriptionInvoice `json:"created"`
	Existing int                                 `json:"existing"`
}
