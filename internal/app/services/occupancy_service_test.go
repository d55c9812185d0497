package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

// failingLedger fails Adjust calls selected by failOn
type failingLedger struct {
	Ledger
	failOn func(roomID int64, delta int) error
}

func (l *failingLedger) Adjust(ctx context.Context, roomID int64, delta int) (*models.Room, error) {
	if err := l.failOn(roomID, delta); err != nil {
		return nil, err
	}
	return l.Ledger.Adjust(ctx, roomID, delta)
}

// failingMoveBeds fails every MoveBed call
type failingMoveBeds struct {
	BedStore
	err error
}

func (b *failingMoveBeds) MoveBed(context.Context, int64, int64, int64, string) error {
	return b.err
}

// moveBackFails fails MoveBed calls that return a student to room back
type moveBackFails struct {
	BedStore
	back int64
	err  error
}

func (b *moveBackFails) MoveBed(ctx context.Context, studentID, fromRoomID, toRoomID int64, bed string) error {
	if toRoomID == b.back {
		return b.err
	}
	return b.BedStore.MoveBed(ctx, studentID, fromRoomID, toRoomID, bed)
}

// interleavingLedger runs hook once, right after the first successful increment of roomID
type interleavingLedger struct {
	Ledger
	roomID int64
	hook   func()
	done   bool
}

func (l *interleavingLedger) Adjust(ctx context.Context, roomID int64, delta int) (*models.Room, error) {
	room, err := l.Ledger.Adjust(ctx, roomID, delta)
	if err == nil && roomID == l.roomID && delta > 0 && !l.done {
		l.done = true
		l.hook()
	}
	return room, err
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t, true)
	other := f.hostel(t, true)
	r := f.room(t, h.ID, "A-101", 2)
	foreign := f.room(t, other.ID, "B-1", 2)
	ctx := context.Background()

	holder := f.assigned(t, h.ID, r.ID, "1")

	tests := []struct {
		name    string
		roomID  int64
		bed     string
		wantErr error
	}{
		{"bed taken", r.ID, "1", apperrors.ErrBedTaken},
		{"bed zero", r.ID, "0", apperrors.ErrInvalidBed},
		{"bed beyond room size", r.ID, "3", apperrors.ErrInvalidBed},
		{"empty bed", r.ID, "  ", apperrors.ErrInvalidBed},
		{"room of another hostel", foreign.ID, "1", apperrors.ErrRoomNotInHostel},
		{"unknown room", 999, "1", apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := f.student(t, h.ID, 10000)
			_, err := f.occupancy.Assign(ctx, st.ID, tt.roomID, tt.bed)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Assign() error = %v, want %v", err, tt.wantErr)
			}
			if f.reload(t, st.ID).HasBed() {
				t.Error("failed Assign() left the student with a bed")
			}
			if got := f.occupied(t, r.ID); got != 1 {
				t.Errorf("occupiedBeds = %d, want 1", got)
			}
		})
	}

	t.Run("success", func(t *testing.T) {
		st := f.student(t, h.ID, 10000)
		got, err := f.occupancy.Assign(ctx, st.ID, r.ID, " 02 ")
		if err != nil {
			t.Fatalf("Assign() error = %v", err)
		}
		if *got.RoomID != r.ID || *got.BedNumber != "2" {
			t.Errorf("student bed = (%d, %s), want (%d, 2)", *got.RoomID, *got.BedNumber, r.ID)
		}
		if n := f.occupied(t, r.ID); n != 2 {
			t.Errorf("occupiedBeds = %d, want 2", n)
		}
	})

	t.Run("already assigned", func(t *testing.T) {
		_, err := f.occupancy.Assign(ctx, holder.ID, r.ID, "2")
		if !errors.Is(err, apperrors.ErrAlreadyAssigned) {
			t.Errorf("Assign() error = %v, want ErrAlreadyAssigned", err)
		}
	})

	t.Run("room full", func(t *testing.T) {
		big := f.room(t, h.ID, "A-102", 1)
		f.assigned(t, h.ID, big.ID, "A")
		st := f.student(t, h.ID, 10000)
		_, err := f.occupancy.Assign(ctx, st.ID, big.ID, "B")
		if !errors.Is(err, apperrors.ErrRoomFull) {
			t.Errorf("Assign() error = %v, want ErrRoomFull", err)
		}
		if n := f.occupied(t, big.ID); n != 1 {
			t.Errorf("occupiedBeds = %d, want 1", n)
		}
	})
}

func TestAssignBedTakenWinsOverRoomFull(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t, true)
	r := f.room(t, h.ID, "A-101", 1)

	f.assigned(t, h.ID, r.ID, "1")
	st := f.student(t, h.ID, 10000)

	_, err := f.occupancy.Assign(context.Background(), st.ID, r.ID, "1")
	if !errors.Is(err, apperrors.ErrBedTaken) {
		t.Errorf("Assign() error = %v, want ErrBedTaken", err)
	}
	if errors.Is(err, apperrors.ErrRoomFull) {
		t.Error("ErrBedTaken must stay distinguishable from ErrRoomFull")
	}
}

func TestAssignRollsBackWhenIncrementFails(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t, true)
	r := f.room(t, h.ID, "A-101", 2)
	st := f.student(t, h.ID, 10000)

	ledger := &failingLedger{Ledger: f.ledger, failOn: func(int64, int) error { return apperrors.ErrRoomFull }}
	occupancy := NewOccupancyService(f.store, ledger, zerolog.Nop())

	_, err := occupancy.Assign(context.Background(), st.ID, r.ID, "1")
	if !errors.Is(err, apperrors.ErrRoomFull) {
		t.Fatalf("Assign() error = %v, want ErrRoomFull", err)
	}
	if f.reload(t, st.ID).HasBed() {
		t.Error("bed assignment was not rolled back")
	}
	if n := f.occupied(t, r.ID); n != 0 {
		t.Errorf("occupiedBeds = %d, want 0", n)
	}
}

func TestConcurrentAssignNeverOverbooks(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t, true)
	r := f.room(t, h.ID, "A-101", 2)
	ctx := context.Background()

	f.assigned(t, h.ID, r.ID, "1")

	const contenders = 10
	students := make([]*models.Student, contenders)
	for i := range students {
		students[i] = f.student(t, h.ID, 10000)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i, st := range students {
		wg.Add(1)
		go func(i int, st *models.Student) {
			defer wg.Done()
			_, errs[i] = f.occupancy.Assign(ctx, st.ID, r.ID, fmt.Sprintf("X%d", i))
		}(i, st)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrRoomFull):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded > 1 {
		t.Errorf("%d students got the last bed", succeeded)
	}

	room, err := f.ledger.Reconcile(ctx, r.ID)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if room.OccupiedBeds != 1+succeeded || room.OccupiedBeds > room.TotalBeds {
		t.Errorf("occupiedBeds = %d, want %d", room.OccupiedBeds, 1+succeeded)
	}
}

func TestMove(t *testing.T) {
	ctx := context.Background()

	t.Run("between rooms", func(t *testing.T) {
		f := newFixture(t)
		h := f.hostel(t, true)
		from := f.room(t, h.ID, "A-101", 2)
		to := f.room(t, h.ID, "A-102", 2)
		st := f.assigned(t, h.ID, from.ID, "1")

		got, err := f.occupancy.Move(ctx, st.ID, to.ID, "2")
		if err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		if *got.RoomID != to.ID || *got.BedNumber != "2" {
			t.Errorf("student bed = (%d, %s), want (%d, 2)", *got.RoomID, *got.BedNumber, to.ID)
		}
		if f.occupied(t, from.ID) != 0 || f.occupied(t, to.ID) != 1 {
			t.Errorf("occupied = (%d, %d), want (0, 1)", f.occupied(t, from.ID), f.occupied(t, to.ID))
		}
	})

	t.Run("same room other bed", func(t *testing.T) {
		f := newFixture(t)
		h := f.hostel(t, true)
		r := f.room(t, h.ID, "A-101", 2)
		st := f.assigned(t, h.ID, r.ID, "1")
		f.assigned(t, h.ID, r.ID, "2")

		// Room is full, but a move inside it does not need a free bed, only a free label.
		if _, err := f.occupancy.Move(ctx, st.ID, r.ID, "2"); !errors.Is(err, apperrors.ErrBedTaken) {
			t.Fatalf("Move() to taken bed error = %v, want ErrBedTaken", err)
		}
		if _, err := f.ledger.Resize(ctx, r.ID, 3); err != nil {
			t.Fatalf("Resize() error = %v", err)
		}
		got, err := f.occupancy.Move(ctx, st.ID, r.ID, "3")
		if err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		if *got.BedNumber != "3" || f.occupied(t, r.ID) != 2 {
			t.Errorf("bed = %s occupied = %d, want 3 and 2", *got.BedNumber, f.occupied(t, r.ID))
		}
	})

	t.Run("target full", func(t *testing.T) {
		f := newFixture(t)
		h := f.hostel(t, true)
		from := f.room(t, h.ID, "A-101", 2)
		to := f.room(t, h.ID, "A-102", 1)
		st := f.assigned(t, h.ID, from.ID, "1")
		f.assigned(t, h.ID, to.ID, "1")

		_, err := f.occupancy.Move(ctx, st.ID, to.ID, "B")
		if !errors.Is(err, apperrors.ErrRoomFull) {
			t.Fatalf("Move() error = %v, want ErrRoomFull", err)
		}
		if f.occupied(t, from.ID) != 1 || f.occupied(t, to.ID) != 1 {
			t.Errorf("occupied = (%d, %d), want (1, 1)", f.occupied(t, from.ID), f.occupied(t, to.ID))
		}
		if *f.reload(t, st.ID).RoomID != from.ID {
			t.Error("student left the old room")
		}
	})

	t.Run("increment fails after bed write", func(t *testing.T) {
		f := newFixture(t)
		h := f.hostel(t, true)
		from := f.room(t, h.ID, "A-101", 2)
		to := f.room(t, h.ID, "A-102", 2)
		st := f.assigned(t, h.ID, from.ID, "1")

		boom := errors.New("storage unavailable")
		ledger := &failingLedger{Ledger: f.ledger, failOn: func(roomID int64, delta int) error {
			if roomID == to.ID && delta > 0 {
				return boom
			}
			return nil
		}}
		occupancy := NewOccupancyService(f.store, ledger, zerolog.Nop())

		if _, err := occupancy.Move(ctx, st.ID, to.ID, "1"); !errors.Is(err, boom) {
			t.Fatalf("Move() error = %v, want %v", err, boom)
		}
		if f.occupied(t, from.ID) != 1 || f.occupied(t, to.ID) != 0 {
			t.Errorf("occupied = (%d, %d), want (1, 0)", f.occupied(t, from.ID), f.occupied(t, to.ID))
		}
		got := f.reload(t, st.ID)
		if *got.RoomID != from.ID || *got.BedNumber != "1" {
			t.Errorf("student bed = (%d, %s), want (%d, 1)", *got.RoomID, *got.BedNumber, from.ID)
		}
	})

	t.Run("failed rollback is reported", func(t *testing.T) {
		f := newFixture(t)
		h := f.hostel(t, true)
		from := f.room(t, h.ID, "A-101", 2)
		to := f.room(t, h.ID, "A-102", 2)
		st := f.assigned(t, h.ID, from.ID, "1")

		boom := errors.New("storage unavailable")
		stuck := errors.New("move back failed")
		ledger := &failingLedger{Ledger: f.ledger, failOn: func(roomID int64, delta int) error {
			if roomID == to.ID && delta > 0 {
				return boom
			}
			return nil
		}}
		occupancy := NewOccupancyService(&moveBackFails{BedStore: f.store, back: from.ID, err: stuck}, ledger, zerolog.Nop())

		_, err := occupancy.Move(ctx, st.ID, to.ID, "1")
		if !errors.Is(err, boom) {
			t.Fatalf("Move() error = %v, want %v", err, boom)
		}
		if !strings.Contains(err.Error(), stuck.Error()) {
			t.Errorf("Move() error = %v, want it to mention %q", err, stuck)
		}
	})

	t.Run("decrement failure is reconciled", func(t *testing.T) {
		f := newFixture(t)
		h := f.hostel(t, true)
		from := f.room(t, h.ID, "A-101", 2)
		to := f.room(t, h.ID, "A-102", 2)
		st := f.assigned(t, h.ID, from.ID, "1")

		ledger := &failingLedger{Ledger: f.ledger, failOn: func(roomID int64, delta int) error {
			if roomID == from.ID && delta < 0 {
				return errors.New("storage unavailable")
			}
			return nil
		}}
		occupancy := NewOccupancyService(f.store, ledger, zerolog.Nop())

		if _, err := occupancy.Move(ctx, st.ID, to.ID, "1"); err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		if f.occupied(t, from.ID) != 0 || f.occupied(t, to.ID) != 1 {
			t.Errorf("occupied = (%d, %d), want (0, 1)", f.occupied(t, from.ID), f.occupied(t, to.ID))
		}
	})

	t.Run("drifted source counter is reconciled first", func(t *testing.T) {
		f := newFixture(t)
		h := f.hostel(t, true)
		from := f.room(t, h.ID, "A-101", 2)
		to := f.room(t, h.ID, "A-102", 2)
		st := f.assigned(t, h.ID, from.ID, "1")

		if _, err := f.store.AdjustOccupiedBeds(ctx, from.ID, -1); err != nil {
			t.Fatalf("AdjustOccupiedBeds() error = %v", err)
		}

		if _, err := f.occupancy.Move(ctx, st.ID, to.ID, "1"); err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		if f.occupied(t, from.ID) != 0 || f.occupied(t, to.ID) != 1 {
			t.Errorf("occupied = (%d, %d), want (0, 1)", f.occupied(t, from.ID), f.occupied(t, to.ID))
		}
	})

	t.Run("admission racing a move cannot overfill the target", func(t *testing.T) {
		f := newFixture(t)
		h := f.hostel(t, true)
		from := f.room(t, h.ID, "A-101", 2)
		to := f.room(t, h.ID, "A-102", 2)
		st := f.assigned(t, h.ID, from.ID, "1")
		f.assigned(t, h.ID, to.ID, "1")
		late := f.student(t, h.ID, 10000)

		var admitErr error
		ledger := &interleavingLedger{Ledger: f.ledger, roomID: to.ID}
		occupancy := NewOccupancyService(f.store, ledger, zerolog.Nop())
		ledger.hook = func() {
			// Assign reconciles the target from the bed rows before checking for space.
			_, admitErr = f.occupancy.Assign(ctx, late.ID, to.ID, "B")
		}

		if _, err := occupancy.Move(ctx, st.ID, to.ID, "2"); err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		if !errors.Is(admitErr, apperrors.ErrRoomFull) {
			t.Errorf("Assign() during move error = %v, want ErrRoomFull", admitErr)
		}
		room, err := f.ledger.Reconcile(ctx, to.ID)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if room.OccupiedBeds != 2 {
			t.Errorf("holders in target = %d, want 2", room.OccupiedBeds)
		}
		if f.reload(t, late.ID).HasBed() {
			t.Error("late student got a bed in a full room")
		}
	})

	t.Run("bed write fails before counters change", func(t *testing.T) {
		f := newFixture(t)
		h := f.hostel(t, true)
		from := f.room(t, h.ID, "A-101", 2)
		to := f.room(t, h.ID, "A-102", 2)
		st := f.assigned(t, h.ID, from.ID, "1")

		boom := errors.New("write failed")
		occupancy := NewOccupancyService(&failingMoveBeds{BedStore: f.store, err: boom}, f.ledger, zerolog.Nop())

		if _, err := occupancy.Move(ctx, st.ID, to.ID, "1"); !errors.Is(err, boom) {
			t.Fatalf("Move() error = %v, want %v", err, boom)
		}
		if f.occupied(t, from.ID) != 1 || f.occupied(t, to.ID) != 0 {
			t.Errorf("occupied = (%d, %d), want (1, 0)", f.occupied(t, from.ID), f.occupied(t, to.ID))
		}
	})

	t.Run("student without bed is assigned", func(t *testing.T) {
		f := newFixture(t)
		h := f.hostel(t, true)
		r := f.room(t, h.ID, "A-101", 2)
		st := f.student(t, h.ID, 10000)

		if _, err := f.occupancy.Move(ctx, st.ID, r.ID, "1"); err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		if f.occupied(t, r.ID) != 1 {
			t.Errorf("occupiedBeds = %d, want 1", f.occupied(t, r.ID))
		}
	})
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t, true)
	r := f.room(t, h.ID, "A-101", 2)
	st := f.assigned(t, h.ID, r.ID, "1")
	ctx := context.Background()

	released, err := f.occupancy.Release(ctx, st.ID)
	if err != nil || !released {
		t.Fatalf("first Release() = (%v, %v), want (true, nil)", released, err)
	}
	released, err = f.occupancy.Release(ctx, st.ID)
	if err != nil || released {
		t.Fatalf("second Release() = (%v, %v), want (false, nil)", released, err)
	}

	if f.occupied(t, r.ID) != 0 {
		t.Errorf("occupiedBeds = %d, want 0", f.occupied(t, r.ID))
	}
	if f.reload(t, st.ID).HasBed() {
		t.Error("student still holds a bed")
	}
}

func TestConcurrentReleaseDecrementsOnce(t *testing.T) {
	f := newFixture(t)
	h := f.hostel(t, true)
	r := f.room(t, h.ID, "A-101", 3)
	st := f.assigned(t, h.ID, r.ID, "1")
	f.assigned(t, h.ID, r.ID, "2")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.occupancy.Release(ctx, st.ID); err != nil {
				t.Errorf("Release() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if f.occupied(t, r.ID) != 1 {
		t.Errorf("occupiedBeds = %d, want 1", f.occupied(t, r.ID))
	}
}
