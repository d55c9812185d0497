package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/helpers"
)

// An admission invoice already covers the month it was raised in.
var rentCoveringTypes = []models.PaymentType{models.PaymentRent, models.PaymentAdmission}

// BillingService creates invoices: the monthly rent run, admission invoices and ad-hoc charges
type BillingService struct {
	hostels  HostelStore
	students StudentReader
	fees     FeeStatusStore
	payments PaymentStore
	receipts *ReceiptIssuer
	logger   zerolog.Logger
}

// NewBillingService creates a new billing service
func NewBillingService(
	hostels HostelStore,
	students StudentReader,
	fees FeeStatusStore,
	payments PaymentStore,
	receipts *ReceiptIssuer,
	logger zerolog.Logger,
) *BillingService {
	return &BillingService{
		hostels:  hostels,
		students: students,
		fees:     fees,
		payments: payments,
		receipts: receipts,
		logger:   logger,
	}
}

func validatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return apperrors.NewValidationError("month must be between 1 and 12, got %d", month)
	}
	if year < 2000 || year > 2100 {
		return apperrors.NewValidationError("year must be between 2000 and 2100, got %d", year)
	}
	return nil
}

// GenerateMonthlyDues bills every active student of every active hostel for one month.
// Zero month or year default to the current period. A period that already has rent
// invoices is locked and the run fails with ErrAlreadyGenerated. Failures of individual
// students are logged and reported in the result without stopping the run.
func (s *BillingService) GenerateMonthlyDues(ctx context.Context, month, year int) (*dto.BillingRunResult, error) {
	month, year = helpers.ResolvePeriod(month, year, timeNow())
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}

	existing, err := s.payments.CountPaymentsForPeriod(ctx, models.PaymentRent, month, year)
	if err != nil {
		return nil, fmt.Errorf("error checking billing period: %w", err)
	}
	if existing > 0 {
		return nil, alreadyGenerated(month, year)
	}

	hostels, err := s.hostels.ListHostels(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("error listing hostels: %w", err)
	}

	log := s.logger.With().Int("month", month).Int("year", year).Logger()
	log.Info().Int("hostels", len(hostels)).Msg("Billing run started")

	result := &dto.BillingRunResult{Month: month, Year: year}
	for _, hostel := range hostels {
		students, err := s.students.ListActiveStudentsByHostel(ctx, hostel.ID)
		if err != nil {
			log.Error().Err(err).Int64("hostelID", hostel.ID).Msg("Skipping hostel, could not list students")
			result.Failed++
			result.Failures = append(result.Failures, dto.BillingFailure{HostelID: hostel.ID, Reason: err.Error()})
			continue
		}

		for _, student := range students {
			created, err := s.billStudent(ctx, student, month, year)
			switch {
			case errors.Is(err, apperrors.ErrDuplicateReceipt) && result.Created == 0:
				// A concurrent run got to the first invoice before us and owns the period.
				return nil, alreadyGenerated(month, year)
			case errors.Is(err, apperrors.ErrDuplicateReceipt):
				result.Skipped++
			case err != nil:
				log.Error().Err(err).Int64("hostelID", hostel.ID).Int64("studentID", student.ID).
					Msg("Failed to bill student")
				result.Failed++
				result.Failures = append(result.Failures, dto.BillingFailure{
					HostelID:  hostel.ID,
					StudentID: student.ID,
					Reason:    err.Error(),
				})
			case created:
				result.Created++
			default:
				result.Skipped++
			}
		}
	}

	log.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Billing run finished")
	return result, nil
}

func alreadyGenerated(month, year int) error {
	return apperrors.NewCustomError(apperrors.ErrAlreadyGenerated,
		fmt.Sprintf("rent invoices for %02d/%d have already been generated", month, year))
}

// billStudent creates one rent invoice unless the student already has one for the period
func (s *BillingService) billStudent(ctx context.Context, student *models.Student, month, year int) (bool, error) {
	exists, err := s.payments.HasStudentInvoiceForPeriod(ctx, student.ID, rentCoveringTypes, month, year)
	if err != nil {
		return false, fmt.Errorf("error checking existing invoice: %w", err)
	}
	if exists {
		return false, nil
	}

	payment := &models.Payment{
		StudentID:     student.ID,
		HostelID:      student.HostelID,
		Amount:        student.MonthlyFee,
		Month:         month,
		Year:          year,
		PaymentType:   models.PaymentRent,
		Status:        models.PaymentUnpaid,
		ReceiptNumber: RentReceipt(month, year, student.ID),
		Description:   fmt.Sprintf("Rent for %02d/%d", month, year),
	}
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		return false, err
	}

	s.markFeeStatus(ctx, student.ID, models.FeeDue)
	return true, nil
}

// CreateInitialInvoice raises the admission invoice: first month's fee plus the security deposit
func (s *BillingService) CreateInitialInvoice(ctx context.Context, student *models.Student) (*models.Payment, error) {
	now := timeNow()
	payment := &models.Payment{
		StudentID:   student.ID,
		HostelID:    student.HostelID,
		Amount:      student.MonthlyFee + student.SecurityDeposit,
		Month:       int(now.Month()),
		Year:        now.Year(),
		PaymentType: models.PaymentAdmission,
		Status:      models.PaymentUnpaid,
		Description: "Admission: first month fee and security deposit",
	}

	if err := s.createSequenced(ctx, payment); err != nil {
		return nil, err
	}
	s.markFeeStatus(ctx, student.ID, models.FeeDue)
	return payment, nil
}

// CreateCharge raises an ad-hoc invoice. Rent is only ever billed by the monthly run.
func (s *BillingService) CreateCharge(ctx context.Context, req dto.CreateChargeRequest) (*models.Payment, error) {
	if !req.PaymentType.Valid() || req.PaymentType == models.PaymentRent {
		return nil, apperrors.NewValidationError("payment type %q cannot be charged manually", req.PaymentType)
	}
	if req.Amount <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive")
	}

	month, year := helpers.ResolvePeriod(req.Month, req.Year, timeNow())
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}

	student, err := s.students.GetStudentByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		StudentID:   student.ID,
		HostelID:    student.HostelID,
		Amount:      req.Amount,
		Month:       month,
		Year:        year,
		PaymentType: req.PaymentType,
		Status:      models.PaymentUnpaid,
		Description: req.Description,
	}
	if err := s.createSequenced(ctx, payment); err != nil {
		return nil, err
	}
	s.markFeeStatus(ctx, student.ID, models.FeeDue)
	return payment, nil
}

func (s *BillingService) createSequenced(ctx context.Context, payment *models.Payment) error {
	_, err := s.receipts.Issue(ctx, payment.Month, payment.Year, func(receipt string) error {
		payment.ReceiptNumber = receipt
		return s.payments.CreatePayment(ctx, payment)
	})
	if err != nil {
		return fmt.Errorf("error creating invoice: %w", err)
	}

	s.logger.Info().
		Int64("paymentID", payment.ID).
		Int64("studentID", payment.StudentID).
		Str("receipt", payment.ReceiptNumber).
		Str("type", string(payment.PaymentType)).
		Msg("Invoice created")
	return nil
}

// MarkOverdue flags every still-unpaid invoice of the period as OVERDUE
func (s *BillingService) MarkOverdue(ctx context.Context, month, year int) (*dto.OverdueResult, error) {
	month, year = helpers.ResolvePeriod(month, year, timeNow())
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}

	overdue, err := s.payments.MarkOverdue(ctx, month, year)
	if err != nil {
		return nil, fmt.Errorf("error marking invoices overdue: %w", err)
	}

	seen := make(map[int64]struct{}, len(overdue))
	for _, p := range overdue {
		if _, ok := seen[p.StudentID]; ok {
			continue
		}
		seen[p.StudentID] = struct{}{}
		s.markFeeStatus(ctx, p.StudentID, models.FeeOverdue)
	}

	s.logger.Info().Int("month", month).Int("year", year).Int("marked", len(overdue)).Msg("Overdue invoices marked")
	return &dto.OverdueResult{Month: month, Year: year, Marked: len(overdue)}, nil
}

// markFeeStatus is best-effort: feeStatus is a display hint and the invoice is the source of truth
func (s *BillingService) markFeeStatus(ctx context.Context, studentID int64, status models.FeeStatus) {
	if err := s.fees.SetFeeStatus(ctx, studentID, status); err != nil {
		s.logger.Warn().Err(err).Int64("studentID", studentID).Str("feeStatus", string(status)).
			Msg("Failed to update fee status")
	}
}
