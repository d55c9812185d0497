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

// SubscriptionService bills hostels for platform usage. It is a separate ledger from student rent.
type SubscriptionService struct {
	hostels       HostelStore
	students      StudentReader
	subscriptions SubscriptionStore
	rate          int64
	logger        zerolog.Logger
}

// NewSubscriptionService creates a service charging rate per active student per month
func NewSubscriptionService(hostels HostelStore, students StudentReader, subscriptions SubscriptionStore, rate int64, logger zerolog.Logger) *SubscriptionService {
	return &SubscriptionService{
		hostels:       hostels,
		students:      students,
		subscriptions: subscriptions,
		rate:          rate,
		logger:        logger,
	}
}

// Generate creates one PENDING invoice per active hostel for the period. Hostels that already
// have one are counted in Existing and left untouched, so the run can be repeated safely.
func (s *SubscriptionService) Generate(ctx context.Context, month, year int) (*dto.SubscriptionRunResult, error) {
	month, year = helpers.ResolvePeriod(month, year, timeNow())
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}

	hostels, err := s.hostels.ListHostels(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("error listing hostels: %w", err)
	}

	result := &dto.SubscriptionRunResult{
		Month:   month,
		Year:    year,
		Created: make([]*models.HostelSubscriptionInvoice, 0, len(hostels)),
	}
	for _, hostel := range hostels {
		count, err := s.students.CountActiveStudentsByHostel(ctx, hostel.ID)
		if err != nil {
			return nil, fmt.Errorf("error counting students of hostel %d: %w", hostel.ID, err)
		}

		invoice := &models.HostelSubscriptionInvoice{
			HostelID:           hostel.ID,
			Month:              month,
			Year:               year,
			ActiveStudentCount: count,
			RatePerStudent:     s.rate,
			Amount:             int64(count) * s.rate,
			Status:             models.SubscriptionPending,
		}
		err = s.subscriptions.CreateSubscriptionInvoice(ctx, invoice)
		if errors.Is(err, apperrors.ErrSubscriptionExists) {
			result.Existing++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error creating subscription invoice for hostel %d: %w", hostel.ID, err)
		}
		result.Created = append(result.Created, invoice)
	}

	s.logger.Info().
		Int("month", month).
		Int("year", year).
		Int("created", len(result.Created)).
		Int("existing", result.Existing).
		Msg("Subscription invoices generated")
	return result, nil
}

// MarkPaid completes a pending subscription invoice
func (s *SubscriptionService) MarkPaid(ctx context.Context, id int64) (*models.HostelSubscriptionInvoice, error) {
	invoice, err := s.subscriptions.MarkSubscriptionPaid(ctx, id, timeNow())
	if errors.Is(err, apperrors.ErrStaleWrite) {
		return nil, apperrors.ErrAlreadyVerified
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("invoiceID", id).Int64("hostelID", invoice.HostelID).Msg("Subscription invoice paid")
	return invoice, nil
}

// ListForHostel returns a hostel's subscription invoices, newest period first
func (s *SubscriptionService) ListForHostel(ctx context.Context, hostelID int64) ([]*models.HostelSubscriptionInvoice, error) {
	if _, err := s.hostels.GetHostelByID(ctx, hostelID); err != nil {
		return nil, err
	}
	return s.subscriptions.ListSubscriptionInvoices(ctx, hostelID)
}
