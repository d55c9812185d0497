package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

// brokenFees fails every fee status write
type brokenFees struct{}

func (brokenFees) SetFeeStatus(context.Context, int64, models.FeeStatus) error {
	return errors.New("fee status unavailable")
}

// invoice creates a FINE charge for a fresh student and returns it
func (f *fixture) invoice(t *testing.T) *models.Payment {
	t.Helper()
	h := f.hostel(t, true)
	st := f.student(t, h.ID, 10000)
	p, err := f.billing.CreateCharge(context.Background(), dto.CreateChargeRequest{
		StudentID:   st.ID,
		PaymentType: models.PaymentFine,
		Amount:      500,
	})
	if err != nil {
		t.Fatalf("CreateCharge() error = %v", err)
	}
	return p
}

func TestPaymentLifecycle(t *testing.T) {
	freezeTime(t, march2025)
	f := newFixture(t)
	ctx := context.Background()
	p := f.invoice(t)

	pending, err := f.payments.SubmitProof(ctx, p.ID, "  uploads/proof-1.jpg ")
	if err != nil {
		t.Fatalf("SubmitProof() error = %v", err)
	}
	if pending.Status != models.PaymentPending || pending.PaymentProof == nil || *pending.PaymentProof != "uploads/proof-1.jpg" {
		t.Errorf("after proof: status = %s proof = %v", pending.Status, pending.PaymentProof)
	}

	verified, err := f.payments.Verify(ctx, p.ID, 7)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if verified.Status != models.PaymentCompleted || !verified.IsVerified {
		t.Errorf("after verify: status = %s verified = %v", verified.Status, verified.IsVerified)
	}
	if verified.VerifiedBy == nil || *verified.VerifiedBy != 7 {
		t.Errorf("verifiedBy = %v, want 7", verified.VerifiedBy)
	}
	if verified.PaidAt == nil || !verified.PaidAt.Equal(march2025) {
		t.Errorf("paidAt = %v, want %v", verified.PaidAt, march2025)
	}
	if got := f.reload(t, p.StudentID).FeeStatus; got != models.FeePaid {
		t.Errorf("feeStatus = %s, want PAID", got)
	}

	if _, err := f.payments.Verify(ctx, p.ID, 7); !errors.Is(err, apperrors.ErrAlreadyVerified) {
		t.Errorf("second Verify() error = %v, want ErrAlreadyVerified", err)
	}
	if _, err := f.payments.SubmitProof(ctx, p.ID, "late.jpg"); !errors.Is(err, apperrors.ErrAlreadyVerified) {
		t.Errorf("SubmitProof() on completed error = %v, want ErrAlreadyVerified", err)
	}
}

func TestPaymentTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prepare func(f *fixture, id int64) error
		act     func(f *fixture, id int64) error
		wantErr error
	}{
		{
			name: "verify straight from unpaid",
			act: func(f *fixture, id int64) error {
				_, err := f.payments.Verify(ctx, id, 1)
				return err
			},
		},
		{
			name: "record cash for unpaid",
			act: func(f *fixture, id int64) error {
				_, err := f.payments.RecordPayment(ctx, id, 1)
				return err
			},
		},
		{
			name: "record cash for pending is rejected",
			prepare: func(f *fixture, id int64) error {
				_, err := f.payments.SubmitProof(ctx, id, "proof.jpg")
				return err
			},
			act: func(f *fixture, id int64) error {
				_, err := f.payments.RecordPayment(ctx, id, 1)
				return err
			},
			wantErr: apperrors.ErrInvalidTransition,
		},
		{
			name: "record cash for completed",
			prepare: func(f *fixture, id int64) error {
				_, err := f.payments.Verify(ctx, id, 1)
				return err
			},
			act: func(f *fixture, id int64) error {
				_, err := f.payments.RecordPayment(ctx, id, 1)
				return err
			},
			wantErr: apperrors.ErrAlreadyVerified,
		},
		{
			name: "proof can be replaced while pending",
			prepare: func(f *fixture, id int64) error {
				_, err := f.payments.SubmitProof(ctx, id, "blurry.jpg")
				return err
			},
			act: func(f *fixture, id int64) error {
				_, err := f.payments.SubmitProof(ctx, id, "sharp.jpg")
				return err
			},
		},
		{
			name: "empty proof",
			act: func(f *fixture, id int64) error {
				_, err := f.payments.SubmitProof(ctx, id, " ")
				return err
			},
			wantErr: apperrors.ErrValidationFailed,
		},
		{
			name: "unknown payment",
			act: func(f *fixture, _ int64) error {
				_, err := f.payments.Verify(ctx, 999, 1)
				return err
			},
			wantErr: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.invoice(t)
			if tt.prepare != nil {
				if err := tt.prepare(f, p.ID); err != nil {
					t.Fatalf("prepare: %v", err)
				}
			}
			if err := tt.act(f, p.ID); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifySurvivesFeeStatusFailure(t *testing.T) {
	f := newFixture(t)
	p := f.invoice(t)
	payments := NewPaymentService(f.store, brokenFees{}, zerolog.Nop())

	got, err := payments.Verify(context.Background(), p.ID, 1)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.Status != models.PaymentCompleted {
		t.Errorf("status = %s, want COMPLETED", got.Status)
	}
	stored, err := f.store.GetPaymentByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetPaymentByID() error = %v", err)
	}
	if stored.Status != models.PaymentCompleted {
		t.Error("payment was rolled back after the fee status failure")
	}
}

func TestConcurrentVerifyCompletesOnce(t *testing.T) {
	f := newFixture(t)
	p := f.invoice(t)
	ctx := context.Background()

	const verifiers = 10
	var wg sync.WaitGroup
	errs := make([]error, verifiers)
	for i := 0; i < verifiers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.payments.Verify(ctx, p.ID, int64(i+1))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrAlreadyVerified):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d verifications succeeded, want 1", succeeded)
	}
}

func TestListPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.invoice(t)
	f.invoice(t)

	got, err := f.payments.ListPayments(ctx, dto.PaymentFilter{StudentID: p.StudentID, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ListPayments() error = %v", err)
	}
	if len(got.Payments) != 1 || got.Payments[0].ID != p.ID {
		t.Errorf("ListPayments() = %d payments, want only %d", len(got.Payments), p.ID)
	}
	if got.Pagination.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1", got.Pagination.TotalItems)
	}
}
