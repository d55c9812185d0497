package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/app/repositories/memory"
)

// fixture wires every service over one in-memory store
type fixture struct {
	store     *memory.Store
	cache     *recordingCache
	ledger    *CapacityLedger
	occupancy *OccupancyService
	billing   *BillingService
	payments  *PaymentService
	students  *StudentService
	hostels   *HostelService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	cache := newRecordingCache()
	log := zerolog.Nop()

	ledger := NewCapacityLedger(store, cache, log)
	occupancy := NewOccupancyService(store, ledger, log)
	billing := NewBillingService(store, store, store, store, NewReceiptIssuer(store, 5), log)

	return &fixture{
		store:     store,
		cache:     cache,
		ledger:    ledger,
		occupancy: occupancy,
		billing:   billing,
		payments:  NewPaymentService(store, store, log),
		students:  NewStudentService(store, store, store, occupancy, billing, fakeHash, 20, log),
		hostels:   NewHostelService(store, store, ledger, cache, log),
	}
}

var userSeq atomic.Int64

func fakeHash(password string) (string, error) {
	return "hashed:" + password, nil
}

// freezeTime pins timeNow for the duration of the test
func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = prev })
}

func (f *fixture) hostel(t *testing.T, active bool) *models.Hostel {
	t.Helper()
	ctx := context.Background()

	h := &models.Hostel{Name: "Iqbal Hall", IsActive: true}
	if err := f.store.CreateHostel(ctx, h); err != nil {
		t.Fatalf("CreateHostel() error = %v", err)
	}
	if !active {
		if err := f.store.SetHostelActive(ctx, h.ID, false); err != nil {
			t.Fatalf("SetHostelActive() error = %v", err)
		}
		h.IsActive = false
	}
	return h
}

func (f *fixture) room(t *testing.T, hostelID int64, number string, beds int) *models.Room {
	t.Helper()
	r := &models.Room{HostelID: hostelID, RoomNumber: number, TotalBeds: beds}
	if err := f.store.CreateRoom(context.Background(), r); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	return r
}

// student creates an active student without a bed
func (f *fixture) student(t *testing.T, hostelID int64, fee int64) *models.Student {
	t.Helper()
	ctx := context.Background()

	u := &models.User{Username: fmt.Sprintf("user%d", userSeq.Add(1)), RoleType: models.RoleStudent, IsActive: true}
	if err := f.store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	st := &models.Student{
		UserID:     u.ID,
		HostelID:   hostelID,
		FullName:   "Test Student",
		CNIC:       "35202-1234567-1",
		MonthlyFee: fee,
		FeeStatus:  models.FeePaid,
		Status:     models.StudentActive,
	}
	if err := f.store.CreateStudent(ctx, st); err != nil {
		t.Fatalf("CreateStudent() error = %v", err)
	}
	return st
}

func (f *fixture) assigned(t *testing.T, hostelID, roomID int64, bed string) *models.Student {
	t.Helper()
	st := f.student(t, hostelID, 10000)
	if _, err := f.occupancy.Assign(context.Background(), st.ID, roomID, bed); err != nil {
		t.Fatalf("Assign(%s) error = %v", bed, err)
	}
	return st
}

func (f *fixture) occupied(t *testing.T, roomID int64) int {
	t.Helper()
	r, err := f.store.GetRoomByID(context.Background(), roomID)
	if err != nil {
		t.Fatalf("GetRoomByID() error = %v", err)
	}
	return r.OccupiedBeds
}

func (f *fixture) reload(t *testing.T, studentID int64) *models.Student {
	t.Helper()
	st, err := f.store.GetStudentByID(context.Background(), studentID)
	if err != nil {
		t.Fatalf("GetStudentByID() error = %v", err)
	}
	return st
}

// recordingCache is an in-process RoomViewCache that remembers invalidations
type recordingCache struct {
	mu          sync.Mutex
	views       map[int64]dto.RoomView
	invalidated map[int64]int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		views:       make(map[int64]dto.RoomView),
		invalidated: make(map[int64]int),
	}
}

func (c *recordingCache) Get(_ context.Context, roomID int64) (*dto.RoomView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[roomID]
	if !ok {
		return nil, false
	}
	return &v, true
}

func (c *recordingCache) Set(_ context.Context, view dto.RoomView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[view.ID] = view
}

func (c *recordingCache) Invalidate(_ context.Context, roomID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, roomID)
	c.invalidated[roomID]++
}

func (c *recordingCache) invalidations(roomID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated[roomID]
}
