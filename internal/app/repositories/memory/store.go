// Package memory is an in-process store implementing every service store interface.
// It backs the "memory" database driver and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/helpers"
)

type Store struct {
	mu sync.RWMutex

	nextID int64

	users         map[int64]*models.User
	hostels       map[int64]*models.Hostel
	rooms         map[int64]*models.Room
	students      map[int64]*models.Student
	payments      map[int64]*models.Payment
	subscriptions map[int64]*models.HostelSubscriptionInvoice
}

func New() *Store {
	return &Store{
		users:         make(map[int64]*models.User),
		hostels:       make(map[int64]*models.Hostel),
		rooms:         make(map[int64]*models.Room),
		students:      make(map[int64]*models.Student),
		payments:      make(map[int64]*models.Payment),
		subscriptions: make(map[int64]*models.HostelSubscriptionInvoice),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Hostel Store implementation

func (s *Store) CreateHostel(_ context.Context, h *models.Hostel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	h.ID = s.id()
	h.CreatedAt, h.UpdatedAt = now, now
	c := *h
	s.hostels[h.ID] = &c
	return nil
}

func (s *Store) GetHostelByID(_ context.Context, id int64) (*models.Hostel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hostels[id]
	if !ok {
		return nil, apperrors.ErrHostelNotFound
	}
	c := *h
	return &c, nil
}

func (s *Store) ListHostels(_ context.Context, activeOnly bool) ([]*models.Hostel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Hostel, 0, len(s.hostels))
	for _, h := range s.hostels {
		if activeOnly && !h.IsActive {
			continue
		}
		c := *h
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) SetHostelActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hostels[id]
	if !ok {
		return apperrors.ErrHostelNotFound
	}
	h.IsActive = active
	h.UpdatedAt = time.Now()
	return nil
}

// Room Store implementation

func (s *Store) CreateRoom(_ context.Context, r *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hostels[r.HostelID]; !ok {
		return apperrors.ErrHostelNotFound
	}
	for _, existing := range s.rooms {
		if existing.HostelID == r.HostelID && strings.EqualFold(existing.RoomNumber, r.RoomNumber) {
			return apperrors.ErrRoomNumberTaken
		}
	}

	now := time.Now()
	r.ID = s.id()
	r.OccupiedBeds = 0
	r.CreatedAt, r.UpdatedAt = now, now
	c := *r
	s.rooms[r.ID] = &c
	return nil
}

func (s *Store) GetRoomByID(_ context.Context, id int64) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[id]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	c := *r
	return &c, nil
}

func (s *Store) ListRoomsByHostel(_ context.Context, hostelID int64) ([]*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Room, 0)
	for _, r := range s.rooms {
		if r.HostelID == hostelID {
			c := *r
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RoomNumber < result[j].RoomNumber })
	return result, nil
}

// Capacity Store implementation

func (s *Store) AdjustOccupiedBeds(_ context.Context, roomID int64, delta int) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	next := r.OccupiedBeds + delta
	if next > r.TotalBeds {
		return nil, apperrors.ErrRoomFull
	}
	if next < 0 {
		return nil, apperrors.ErrCapacityUnderflow
	}
	r.OccupiedBeds = next
	r.UpdatedAt = time.Now()
	c := *r
	return &c, nil
}

func (s *Store) ReconcileOccupiedBeds(_ context.Context, roomID int64) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return 0, 0, apperrors.ErrRoomNotFound
	}
	before := r.OccupiedBeds
	after := s.countActiveInRoomLocked(roomID)
	if after != before {
		r.OccupiedBeds = after
		r.UpdatedAt = time.Now()
	}
	return before, after, nil
}

func (s *Store) ResizeRoom(_ context.Context, roomID int64, totalBeds int) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	if totalBeds < r.OccupiedBeds {
		return nil, apperrors.ErrRoomFull
	}
	r.TotalBeds = totalBeds
	r.UpdatedAt = time.Now()
	c := *r
	return &c, nil
}

func (s *Store) countActiveInRoomLocked(roomID int64) int {
	n := 0
	for _, st := range s.students {
		if st.IsActive() && st.RoomID != nil && *st.RoomID == roomID {
			n++
		}
	}
	return n
}

// Student Store implementation

func (s *Store) CreateStudent(_ context.Context, st *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hostels[st.HostelID]; !ok {
		return apperrors.ErrHostelNotFound
	}
	if _, ok := s.users[st.UserID]; !ok {
		return apperrors.ErrUserNotFound
	}

	now := time.Now()
	st.ID = s.id()
	// Beds are only ever set through AssignBed.
	st.RoomID, st.BedNumber = nil, nil
	st.CreatedAt, st.UpdatedAt = now, now
	if st.AdmittedAt.IsZero() {
		st.AdmittedAt = now
	}
	s.students[st.ID] = cloneStudent(st)
	return nil
}

func (s *Store) GetStudentByID(_ context.Context, id int64) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return cloneStudent(st), nil
}

func (s *Store) ListStudents(_ context.Context, filter dto.StudentFilter) ([]*models.Student, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Student, 0)
	for _, st := range s.students {
		if filter.HostelID != 0 && st.HostelID != filter.HostelID {
			continue
		}
		if filter.Status != "" && st.Status != filter.Status {
			continue
		}
		matched = append(matched, cloneStudent(st))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	start, end := helpers.CalculateSliceIndices(filter.Page, filter.PageSize, len(matched))
	return matched[start:end], int64(len(matched)), nil
}

func (s *Store) ListActiveStudentsByHostel(_ context.Context, hostelID int64) ([]*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Student, 0)
	for _, st := range s.students {
		if st.HostelID == hostelID && st.IsActive() {
			result = append(result, cloneStudent(st))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) CountActiveStudentsByHostel(_ context.Context, hostelID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, st := range s.students {
		if st.HostelID == hostelID && st.IsActive() {
			n++
		}
	}
	return n, nil
}

func (s *Store) FindActiveBedHolder(_ context.Context, roomID int64, bedNumber string) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if holder := s.activeBedHolderLocked(roomID, bedNumber); holder != nil {
		return cloneStudent(holder), nil
	}
	return nil, nil
}

func (s *Store) activeBedHolderLocked(roomID int64, bedNumber string) *models.Student {
	for _, st := range s.students {
		if st.IsActive() && st.HasBed() && *st.RoomID == roomID && *st.BedNumber == bedNumber {
			return st
		}
	}
	return nil
}

func (s *Store) DeleteStudent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[id]; !ok {
		return apperrors.ErrStudentNotFound
	}
	delete(s.students, id)
	for pid, p := range s.payments {
		if p.StudentID == id {
			delete(s.payments, pid)
		}
	}
	return nil
}

func (s *Store) MarkDeparted(_ context.Context, id int64, status models.StudentStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[id]
	if !ok {
		return false, apperrors.ErrStudentNotFound
	}
	if !st.IsActive() {
		return false, nil
	}
	st.Status = status
	st.LeftAt = &at
	st.UpdatedAt = time.Now()
	return true, nil
}

// Bed Store implementation

func (s *Store) AssignBed(_ context.Context, studentID, roomID int64, bedNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[studentID]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	if _, ok := s.rooms[roomID]; !ok {
		return apperrors.ErrRoomNotFound
	}
	if !st.IsActive() || st.RoomID != nil {
		return apperrors.ErrStaleWrite
	}
	if holder := s.activeBedHolderLocked(roomID, bedNumber); holder != nil {
		return apperrors.ErrBedTaken
	}
	st.RoomID = &roomID
	st.BedNumber = &bedNumber
	st.UpdatedAt = time.Now()
	return nil
}

func (s *Store) MoveBed(_ context.Context, studentID, fromRoomID, toRoomID int64, bedNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[studentID]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	if _, ok := s.rooms[toRoomID]; !ok {
		return apperrors.ErrRoomNotFound
	}
	if !st.IsActive() || st.RoomID == nil || *st.RoomID != fromRoomID {
		return apperrors.ErrStaleWrite
	}
	if holder := s.activeBedHolderLocked(toRoomID, bedNumber); holder != nil && holder.ID != studentID {
		return apperrors.ErrBedTaken
	}
	st.RoomID = &toRoomID
	st.BedNumber = &bedNumber
	st.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ClearBed(_ context.Context, studentID int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[studentID]
	if !ok {
		return 0, false, apperrors.ErrStudentNotFound
	}
	if st.RoomID == nil {
		return 0, false, nil
	}
	roomID := *st.RoomID
	st.RoomID, st.BedNumber = nil, nil
	st.UpdatedAt = time.Now()
	return roomID, true, nil
}

// Fee status

func (s *Store) SetFeeStatus(_ context.Context, studentID int64, status models.FeeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[studentID]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	st.FeeStatus = status
	st.UpdatedAt = time.Now()
	return nil
}

func cloneStudent(st *models.Student) *models.Student {
	c := *st
	if st.RoomID != nil {
		roomID := *st.RoomID
		c.RoomID = &roomID
	}
	if st.BedNumber != nil {
		bed := *st.BedNumber
		c.BedNumber = &bed
	}
	if st.LeftAt != nil {
		leftAt := *st.LeftAt
		c.LeftAt = &leftAt
	}
	return &c
}
