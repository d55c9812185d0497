package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

func TestLedgerAdjustBounds(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t, true)
	r := f.room(t, h.ID, "A-101", 2)
	ctx := context.Background()

	tests := []struct {
		name    string
		delta   int
		wantErr error
		want    int
	}{
		{"first bed", +1, nil, 1},
		{"second bed", +1, nil, 2},
		{"overflow", +1, apperrors.ErrRoomFull, 2},
		{"release", -1, nil, 1},
		{"release last", -1, nil, 0},
		{"underflow", -1, apperrors.ErrCapacityUnderflow, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Adjust(ctx, r.ID, tt.delta)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Adjust(%+d) error = %v, want %v", tt.delta, err, tt.wantErr)
			}
			if got := f.occupied(t, r.ID); got != tt.want {
				t.Errorf("occupiedBeds = %d, want %d", got, tt.want)
			}
		})
	}

	if f.cache.invalidations(r.ID) != 4 {
		t.Errorf("cache invalidated %d times, want 4 (one per successful adjust)", f.cache.invalidations(r.ID))
	}
}

func TestLedgerAdjustUnknownRoom(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Adjust(context.Background(), 999, +1)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Adjust() error = %v, want ErrNotFound", err)
	}
}

func TestLedgerConcurrentAdjustNeverOverfills(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t, true)
	r := f.room(t, h.ID, "A-101", 5)
	ctx := context.Background()

	const callers = 40
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		full      int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Adjust(ctx, r.ID, +1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrRoomFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 || full != callers-5 {
		t.Errorf("succeeded = %d, full = %d, want 5 and %d", succeeded, full, callers-5)
	}
	if got := f.occupied(t, r.ID); got != 5 {
		t.Errorf("occupiedBeds = %d, want 5", got)
	}
}

func TestLedgerReconcileCorrectsDrift(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t, true)
	r := f.room(t, h.ID, "A-101", 4)
	ctx := context.Background()

	f.assigned(t, h.ID, r.ID, "1")
	// Simulate a crash that left the counter ahead of the students.
	if _, err := f.store.AdjustOccupiedBeds(ctx, r.ID, +2); err != nil {
		t.Fatalf("AdjustOccupiedBeds() error = %v", err)
	}
	before := f.cache.invalidations(r.ID)

	room, err := f.ledger.Reconcile(ctx, r.ID)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if room.OccupiedBeds != 1 {
		t.Errorf("Reconcile() occupiedBeds = %d, want 1", room.OccupiedBeds)
	}
	if f.cache.invalidations(r.ID) != before+1 {
		t.Error("Reconcile() with drift did not invalidate the cached view")
	}

	// No drift: nothing changes, nothing is invalidated.
	if _, err := f.ledger.Reconcile(ctx, r.ID); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if f.cache.invalidations(r.ID) != before+1 {
		t.Error("Reconcile() without drift invalidated the cached view")
	}
}

func TestLedgerResize(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t, true)
	r := f.room(t, h.ID, "A-101", 3)
	ctx := context.Background()

	f.assigned(t, h.ID, r.ID, "1")
	f.assigned(t, h.ID, r.ID, "2")

	tests := []struct {
		name    string
		total   int
		wantErr error
	}{
		{"zero beds", 0, apperrors.ErrValidationFailed},
		{"below occupancy", 1, apperrors.ErrRoomFull},
		{"exactly occupancy", 2, nil},
		{"grow", 6, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := f.ledger.Resize(ctx, r.ID, tt.total)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resize(%d) error = %v, want %v", tt.total, err, tt.wantErr)
			}
			if err == nil && room.TotalBeds != tt.total {
				t.Errorf("TotalBeds = %d, want %d", room.TotalBeds, tt.total)
			}
		})
	}
}
