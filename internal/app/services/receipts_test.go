package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

// fixedCounter always reports the same highest issued sequence number
type fixedCounter int

func (c fixedCounter) LastReceiptSequence(context.Context, string) (int, error) {
	return int(c), nil
}

func TestRentReceipt(t *testing.T) {
	tests := []struct {
		month, year int
		studentID   int64
		want        string
	}{
		{3, 2025, 42, "INV-202503-000042"},
		{12, 2024, 1, "INV-202412-000001"},
		{1, 2026, 1234567, "INV-202601-1234567"},
	}
	for _, tt := range tests {
		if got := RentReceipt(tt.month, tt.year, tt.studentID); got != tt.want {
			t.Errorf("RentReceipt(%d, %d, %d) = %s, want %s", tt.month, tt.year, tt.studentID, got, tt.want)
		}
	}
}

func TestReceiptIssuer(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("insert failed")

	tests := []struct {
		name       string
		counter    fixedCounter
		attempts   int
		duplicates int
		createErr  error
		want       string
		wantTried  []string
		wantErr    error
	}{
		{
			name:      "first number of the period",
			attempts:  3,
			want:      "RCP-202503-0001",
			wantTried: []string{"RCP-202503-0001"},
		},
		{
			name:      "continues the sequence",
			counter:   41,
			attempts:  3,
			want:      "RCP-202503-0042",
			wantTried: []string{"RCP-202503-0042"},
		},
		{
			name:       "retries past collisions",
			attempts:   3,
			duplicates: 2,
			want:       "RCP-202503-0003",
			wantTried:  []string{"RCP-202503-0001", "RCP-202503-0002", "RCP-202503-0003"},
		},
		{
			name:       "gives up after the last attempt",
			attempts:   2,
			duplicates: 5,
			wantTried:  []string{"RCP-202503-0001", "RCP-202503-0002"},
			wantErr:    apperrors.ErrReceiptExhausted,
		},
		{
			name:     "sequence space used up",
			counter:  9999,
			attempts: 3,
			wantErr:  apperrors.ErrReceiptExhausted,
		},
		{
			name:      "other errors are not retried",
			attempts:  3,
			createErr: boom,
			wantTried: []string{"RCP-202503-0001"},
			wantErr:   boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tried []string
			issuer := NewReceiptIssuer(tt.counter, tt.attempts)
			got, err := issuer.Issue(ctx, 3, 2025, func(receipt string) error {
				tried = append(tried, receipt)
				if tt.createErr != nil {
					return tt.createErr
				}
				if len(tried) <= tt.duplicates {
					return apperrors.ErrDuplicateReceipt
				}
				return nil
			})

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Issue() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Issue() = %q, want %q", got, tt.want)
			}
			if len(tried) != len(tt.wantTried) {
				t.Fatalf("tried %v, want %v", tried, tt.wantTried)
			}
			for i := range tried {
				if tried[i] != tt.wantTried[i] {
					t.Errorf("attempt %d = %s, want %s", i, tried[i], tt.wantTried[i])
				}
			}
		})
	}
}
