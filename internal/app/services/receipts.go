package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/helpers"
)

// ReceiptCounter is the read side the receipt issuer needs
type ReceiptCounter interface {
	LastReceiptSequence(ctx context.Context, prefix string) (int, error)
}

// ReceiptIssuer is the only component that mints receipt numbers
type ReceiptIssuer struct {
	counter  ReceiptCounter
	attempts int
}

// NewReceiptIssuer creates an issuer that retries a colliding sequence number up to attempts times
func NewReceiptIssuer(counter ReceiptCounter, attempts int) *ReceiptIssuer {
	if attempts < 1 {
		attempts = 1
	}
	return &ReceiptIssuer{counter: counter, attempts: attempts}
}

// RentReceipt is the deterministic receipt of a student's monthly rent invoice
func RentReceipt(month, year int, studentID int64) string {
	return fmt.Sprintf("INV-%s-%06d", helpers.PeriodKey(month, year), studentID)
}

func sequencePrefix(month, year int) string {
	return fmt.Sprintf("RCP-%s-", helpers.PeriodKey(month, year))
}

// Issue allocates the next RCP-YYYYMM-NNNN number of the period and hands it to create.
// The next number follows the highest one in use, so numbers freed by deleted invoices
// below it are never handed out again. When create reports ErrDuplicateReceipt the
// sequence is re-read and the next number tried.
// It never reuses a number: after the last attempt it fails with ErrReceiptExhausted.
func (r *ReceiptIssuer) Issue(ctx context.Context, month, year int, create func(receipt string) error) (string, error) {
	prefix := sequencePrefix(month, year)

	var lastSeq int
	for attempt := 0; attempt < r.attempts; attempt++ {
		last, err := r.counter.LastReceiptSequence(ctx, prefix)
		if err != nil {
			return "", fmt.Errorf("error reading receipt sequence: %w", err)
		}

		seq := last + 1
		if seq <= lastSeq {
			seq = lastSeq + 1
		}
		lastSeq = seq
		if seq > 9999 {
			return "", apperrors.ErrReceiptExhausted
		}

		receipt := fmt.Sprintf("%s%04d", prefix, seq)
		err = create(receipt)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, apperrors.ErrDuplicateReceipt) {
			return "", err
		}
	}

	return "", apperrors.ErrReceiptExhausted
}
