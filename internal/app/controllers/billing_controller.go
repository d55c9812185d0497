package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/app/services"
	"github.com/yigit/hostelhub/internal/middleware"
)

// BillingController handles billing runs, invoices and their payment lifecycle
type BillingController struct {
	billingService      *services.BillingService
	paymentService      *services.PaymentService
	subscriptionService *services.SubscriptionService
	authz               Authorizer
	logger              zerolog.Logger
}

// NewBillingController creates a new BillingController
func NewBillingController(
	billingService *services.BillingService,
	paymentService *services.PaymentService,
	subscriptionService *services.SubscriptionService,
	authz Authorizer,
	logger zerolog.Logger,
) *BillingController {
	return &BillingController{
		billingService:      billingService,
		paymentService:      paymentService,
		subscriptionService: subscriptionService,
		authz:               authz,
		logger:              logger,
	}
}

// bindPeriod reads an optional {targetMonth, targetYear} body; an empty body means the current period
func bindPeriod(ctx *gin.Context) (dto.GenerateDuesRequest, bool) {
	var req dto.GenerateDuesRequest
	if ctx.Request.ContentLength == 0 {
		return req, true
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondValidationError(ctx, err)
		return req, false
	}
	return req, true
}

// GenerateMonthlyDues runs the monthly rent billing
// @Summary Generate monthly dues
// @Description Creates one RENT invoice per active student of every active hostel.
// @Description A period can be generated only once; per-student failures are reported without stopping the run.
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.GenerateDuesRequest false "Billing period, defaults to the current month"
// @Success 200 {object} dto.APIResponse{data=dto.BillingRunResult} "Billing run finished"
// @Failure 400 {object} dto.ErrorResponse "Invalid period"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 409 {object} dto.ErrorResponse "Period already generated"
// @Router /billing/generate [post]
func (c *BillingController) GenerateMonthlyDues(ctx *gin.Context) {
	req, ok := bindPeriod(ctx)
	if !ok {
		return
	}

	result, err := c.billingService.GenerateMonthlyDues(ctx.Request.Context(), req.TargetMonth, req.TargetYear)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if result.Failed > 0 {
		c.logger.Warn().Int("failed", result.Failed).Int("month", result.Month).Int("year", result.Year).
			Msg("Billing run finished with failures")
	}
	respond(ctx, http.StatusOK, result, "Billing run finished")
}

// MarkOverdue flags the period's unpaid invoices as overdue
// @Summary Mark invoices overdue
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.GenerateDuesRequest false "Billing period, defaults to the current month"
// @Success 200 {object} dto.APIResponse{data=dto.OverdueResult} "Invoices marked"
// @Failure 400 {object} dto.ErrorResponse "Invalid period"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /billing/overdue [post]
func (c *BillingController) MarkOverdue(ctx *gin.Context) {
	req, ok := bindPeriod(ctx)
	if !ok {
		return
	}

	result, err := c.billingService.MarkOverdue(ctx.Request.Context(), req.TargetMonth, req.TargetYear)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result, "Invoices marked overdue")
}

// CreateCharge raises an ad-hoc invoice for a student
// @Summary Create a charge
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateChargeRequest true "Charge"
// @Success 201 {object} dto.APIResponse{data=models.Payment} "Invoice created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 503 {object} dto.ErrorResponse "No receipt number available"
// @Router /payments [post]
func (c *BillingController) CreateCharge(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}

	var req dto.CreateChargeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondValidationError(ctx, err)
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessStudent(rc, caller, req.StudentID) }) {
		return
	}

	payment, err := c.billingService.CreateCharge(ctx.Request.Context(), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, payment, "Invoice created")
}

// ListHostelPayments lists the invoices of a hostel
// @Summary List a hostel's payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Hostel ID" Format(int64) minimum(1)
// @Param status query string false "Status filter" Enums(UNPAID, PENDING, COMPLETED, OVERDUE)
// @Param month query int false "Billing month"
// @Param year query int false "Billing year"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaymentListResponse} "Payments retrieved"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /hostels/{id}/payments [get]
func (c *BillingController) ListHostelPayments(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	hostelID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var filter dto.PaymentFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		middleware.RespondValidationError(ctx, err)
		return
	}
	filter.HostelID = hostelID
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessHostel(rc, caller, hostelID) }) {
		return
	}

	list, err := c.paymentService.ListPayments(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, list, "")
}

// SubmitProof attaches a proof of payment
// @Summary Submit payment proof
// @Description Moves an UNPAID or OVERDUE invoice to PENDING
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID" Format(int64) minimum(1)
// @Param request body dto.SubmitProofRequest true "Proof reference"
// @Success 200 {object} dto.APIResponse{data=models.Payment} "Proof submitted"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Payment not found"
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /payments/{id}/proof [post]
func (c *BillingController) SubmitProof(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	paymentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req dto.SubmitProofRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondValidationError(ctx, err)
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessPayment(rc, caller, paymentID) }) {
		return
	}

	payment, err := c.paymentService.SubmitProof(ctx.Request.Context(), paymentID, req.ProofFileRef)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, payment, "Proof submitted")
}

// Verify approves a submitted payment
// @Summary Verify a payment
// @Description Moves a PENDING invoice to COMPLETED. Verifying a completed invoice returns PAY_001.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.Payment} "Payment verified"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Payment not found"
// @Failure 409 {object} dto.ErrorResponse "Already verified or invalid transition"
// @Router /payments/{id}/verify [post]
func (c *BillingController) Verify(ctx *gin.Context) {
	c.completePayment(ctx, c.paymentService.Verify, "Payment verified")
}

// RecordPayment records a payment collected directly by staff
// @Summary Record a direct payment
// @Description Moves an UNPAID or OVERDUE invoice straight to COMPLETED
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.Payment} "Payment recorded"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Payment not found"
// @Failure 409 {object} dto.ErrorResponse "Already verified or invalid transition"
// @Router /payments/{id}/record [post]
func (c *BillingController) RecordPayment(ctx *gin.Context) {
	c.completePayment(ctx, c.paymentService.RecordPayment, "Payment recorded")
}

func (c *BillingController) completePayment(
	ctx *gin.Context,
	complete func(ctx context.Context, paymentID, staffID int64) (*models.Payment, error),
	message string,
) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	paymentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessPayment(rc, caller, paymentID) }) {
		return
	}

	payment, err := complete(ctx.Request.Context(), paymentID, caller.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, payment, message)
}

// GenerateSubscriptions bills every active hostel for the platform subscription
// @Summary Generate subscription invoices
// @Description Creates one PENDING invoice per active hostel; hostels already billed for the period are skipped
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.GenerateDuesRequest false "Billing period, defaults to the current month"
// @Success 200 {object} dto.APIResponse{data=dto.SubscriptionRunResult} "Subscription run finished"
// @Failure 400 {object} dto.ErrorResponse "Invalid period"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /subscriptions/generate [post]
func (c *BillingController) GenerateSubscriptions(ctx *gin.Context) {
	req, ok := bindPeriod(ctx)
	if !ok {
		return
	}

	result, err := c.subscriptionService.Generate(ctx.Request.Context(), req.TargetMonth, req.TargetYear)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result, "Subscription run finished")
}

// MarkSubscriptionPaid completes a subscription invoice
// @Summary Mark a subscription invoice paid
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Subscription invoice ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.HostelSubscriptionInvoice} "Invoice paid"
// @Failure 404 {object} dto.ErrorResponse "Invoice not found"
// @Failure 409 {object} dto.ErrorResponse "Already paid"
// @Router /subscriptions/{id}/paid [post]
func (c *BillingController) MarkSubscriptionPaid(ctx *gin.Context) {
	invoiceID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	invoice, err := c.subscriptionService.MarkPaid(ctx.Request.Context(), invoiceID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, invoice, "Subscription invoice paid")
}

// ListSubscriptions lists a hostel's subscription invoices
// @Summary List a hostel's subscription invoices
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Hostel ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]models.HostelSubscriptionInvoice} "Invoices retrieved"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Hostel not found"
// @Router /hostels/{id}/subscriptions [get]
func (c *BillingController) ListSubscriptions(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	hostelID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessHostel(rc, caller, hostelID) }) {
		return
	}

	invoices, err := c.subscriptionService.ListForHostel(ctx.Request.Context(), hostelID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, invoices, "")
}
