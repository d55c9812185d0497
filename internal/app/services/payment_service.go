package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/helpers"
)

// Source states of each transition. COMPLETED never appears: it is terminal.
var (
	proofSources  = []models.PaymentStatus{models.PaymentUnpaid, models.PaymentPending, models.PaymentOverdue}
	verifySources = []models.PaymentStatus{models.PaymentUnpaid, models.PaymentPending, models.PaymentOverdue}
	recordSources = []models.PaymentStatus{models.PaymentUnpaid, models.PaymentOverdue}
)

// PaymentService drives invoices through UNPAID -> PENDING -> COMPLETED
type PaymentService struct {
	payments PaymentStore
	fees     FeeStatusStore
	logger   zerolog.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(payments PaymentStore, fees FeeStatusStore, logger zerolog.Logger) *PaymentService {
	return &PaymentService{
		payments: payments,
		fees:     fees,
		logger:   logger,
	}
}

// GetPayment retrieves a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return s.payments.GetPaymentByID(ctx, id)
}

// ListPayments returns one page of payments matching filter
func (s *PaymentService) ListPayments(ctx context.Context, filter dto.PaymentFilter) (*dto.PaymentListResponse, error) {
	payments, total, err := s.payments.ListPayments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}
	return &dto.PaymentListResponse{
		Payments:   payments,
		Pagination: helpers.NewPaginationInfo(total, filter.Page, filter.PageSize),
	}, nil
}

// SubmitProof attaches the student's proof of payment and moves the invoice to PENDING
func (s *PaymentService) SubmitProof(ctx context.Context, paymentID int64, proofRef string) (*models.Payment, error) {
	proofRef = strings.TrimSpace(proofRef)
	if proofRef == "" {
		return nil, apperrors.NewValidationError("proof reference is required")
	}

	payment, err := s.transition(ctx, paymentID, proofSources, models.PaymentUpdate{
		Status:       models.PaymentPending,
		PaymentProof: &proofRef,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("paymentID", paymentID).Msg("Payment proof submitted")
	return payment, nil
}

// Verify completes a payment on behalf of verifierID. Verifying a COMPLETED payment is rejected.
func (s *PaymentService) Verify(ctx context.Context, paymentID, verifierID int64) (*models.Payment, error) {
	now := timeNow()
	verified := true
	payment, err := s.transition(ctx, paymentID, verifySources, models.PaymentUpdate{
		Status:     models.PaymentCompleted,
		IsVerified: &verified,
		VerifiedBy: &verifierID,
		VerifiedAt: &now,
		PaidAt:     &now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("paymentID", paymentID).Int64("verifierID", verifierID).Msg("Payment verified")
	s.markPaid(ctx, payment)
	return payment, nil
}

// RecordPayment completes an unpaid invoice directly, for cash collected by a manager
func (s *PaymentService) RecordPayment(ctx context.Context, paymentID, collectorID int64) (*models.Payment, error) {
	now := timeNow()
	verified := true
	payment, err := s.transition(ctx, paymentID, recordSources, models.PaymentUpdate{
		Status:     models.PaymentCompleted,
		IsVerified: &verified,
		VerifiedBy: &collectorID,
		VerifiedAt: &now,
		PaidAt:     &now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("paymentID", paymentID).Int64("collectorID", collectorID).Msg("Payment recorded")
	s.markPaid(ctx, payment)
	return payment, nil
}

// transition applies a compare-and-set on the payment status. A lost race is classified
// against the payment's current state.
func (s *PaymentService) transition(ctx context.Context, paymentID int64, from []models.PaymentStatus, update models.PaymentUpdate) (*models.Payment, error) {
	payment, err := s.payments.TransitionPayment(ctx, paymentID, from, update)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, apperrors.ErrStaleWrite) {
		return nil, err
	}

	current, getErr := s.payments.GetPaymentByID(ctx, paymentID)
	if getErr != nil {
		return nil, getErr
	}
	if current.Status == models.PaymentCompleted {
		return nil, apperrors.ErrAlreadyVerified
	}
	return nil, apperrors.NewCustomError(apperrors.ErrInvalidTransition,
		fmt.Sprintf("cannot move payment from %s to %s", current.Status, update.Status))
}

// markPaid propagates a completed payment to the student's fee status. Failures are only logged.
func (s *PaymentService) markPaid(ctx context.Context, payment *models.Payment) {
	if err := s.fees.SetFeeStatus(ctx, payment.StudentID, models.FeePaid); err != nil {
		s.logger.Warn().Err(err).
			Int64("paymentID", payment.ID).
			Int64("studentID", payment.StudentID).
			Msg("Payment verified but fee status update failed")
	}
}
