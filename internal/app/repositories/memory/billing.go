package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/helpers"
)

// Payment Store implementation

func (s *Store) CreatePayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[p.StudentID]; !ok {
		return apperrors.ErrStudentNotFound
	}
	for _, existing := range s.payments {
		if existing.ReceiptNumber == p.ReceiptNumber {
			return apperrors.ErrDuplicateReceipt
		}
	}

	now := time.Now()
	p.ID = s.id()
	p.CreatedAt, p.UpdatedAt = now, now
	s.payments[p.ID] = clonePayment(p)
	return nil
}

func (s *Store) GetPaymentByID(_ context.Context, id int64) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, apperrors.ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

func (s *Store) TransitionPayment(_ context.Context, id int64, from []models.PaymentStatus, u models.PaymentUpdate) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, apperrors.ErrPaymentNotFound
	}
	allowed := false
	for _, st := range from {
		if p.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.ErrStaleWrite
	}

	p.Status = u.Status
	if u.IsVerified != nil {
		p.IsVerified = *u.IsVerified
	}
	if u.PaymentProof != nil {
		proof := *u.PaymentProof
		p.PaymentProof = &proof
	}
	if u.VerifiedBy != nil {
		by := *u.VerifiedBy
		p.VerifiedBy = &by
	}
	if u.VerifiedAt != nil {
		at := *u.VerifiedAt
		p.VerifiedAt = &at
	}
	if u.PaidAt != nil {
		at := *u.PaidAt
		p.PaidAt = &at
	}
	p.UpdatedAt = time.Now()
	return clonePayment(p), nil
}

func (s *Store) CountPaymentsForPeriod(_ context.Context, paymentType models.PaymentType, month, year int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.payments {
		if p.PaymentType == paymentType && p.Month == month && p.Year == year {
			n++
		}
	}
	return n, nil
}

func (s *Store) HasStudentInvoiceForPeriod(_ context.Context, studentID int64, types []models.PaymentType, month, year int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.payments {
		if p.StudentID != studentID || p.Month != month || p.Year != year {
			continue
		}
		for _, t := range types {
			if p.PaymentType == t {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) LastReceiptSequence(_ context.Context, prefix string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	last := 0
	for _, p := range s.payments {
		suffix, ok := strings.CutPrefix(p.ReceiptNumber, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > last {
			last = n
		}
	}
	return last, nil
}

func (s *Store) ListPayments(_ context.Context, filter dto.PaymentFilter) ([]*models.Payment, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Payment, 0)
	for _, p := range s.payments {
		if filter.StudentID != 0 && p.StudentID != filter.StudentID {
			continue
		}
		if filter.HostelID != 0 && p.HostelID != filter.HostelID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Month != 0 && p.Month != filter.Month {
			continue
		}
		if filter.Year != 0 && p.Year != filter.Year {
			continue
		}
		matched = append(matched, clonePayment(p))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	start, end := helpers.CalculateSliceIndices(filter.Page, filter.PageSize, len(matched))
	return matched[start:end], int64(len(matched)), nil
}

func (s *Store) MarkOverdue(_ context.Context, month, year int) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	result := make([]*models.Payment, 0)
	for _, p := range s.payments {
		if p.Status == models.PaymentUnpaid && p.Month == month && p.Year == year {
			p.Status = models.PaymentOverdue
			p.UpdatedAt = now
			result = append(result, clonePayment(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func clonePayment(p *models.Payment) *models.Payment {
	c := *p
	if p.PaymentProof != nil {
		proof := *p.PaymentProof
		c.PaymentProof = &proof
	}
	if p.VerifiedBy != nil {
		by := *p.VerifiedBy
		c.VerifiedBy = &by
	}
	if p.VerifiedAt != nil {
		at := *p.VerifiedAt
		c.VerifiedAt = &at
	}
	if p.PaidAt != nil {
		at := *p.PaidAt
		c.PaidAt = &at
	}
	return &c
}

// Account Store implementation

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return apperrors.ErrUsernameTaken
		}
	}

	now := time.Now()
	u.ID = s.id()
	u.CreatedAt, u.UpdatedAt = now, now
	c := *u
	s.users[u.ID] = &c
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (s *Store) UsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return apperrors.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

// Subscription Store implementation

func (s *Store) CreateSubscriptionInvoice(_ context.Context, inv *models.HostelSubscriptionInvoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hostels[inv.HostelID]; !ok {
		return apperrors.ErrHostelNotFound
	}
	for _, existing := range s.subscriptions {
		if existing.HostelID == inv.HostelID && existing.Month == inv.Month && existing.Year == inv.Year {
			return apperrors.ErrSubscriptionExists
		}
	}

	inv.ID = s.id()
	inv.CreatedAt = time.Now()
	c := *inv
	s.subscriptions[inv.ID] = &c
	return nil
}

func (s *Store) GetSubscriptionInvoiceByID(_ context.Context, id int64) (*models.HostelSubscriptionInvoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.subscriptions[id]
	if !ok {
		return nil, apperrors.ErrSubscriptionInvoiceNotFound
	}
	c := *inv
	return &c, nil
}

func (s *Store) MarkSubscriptionPaid(_ context.Context, id int64, at time.Time) (*models.HostelSubscriptionInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.subscriptions[id]
	if !ok {
		return nil, apperrors.ErrSubscriptionInvoiceNotFound
	}
	if inv.Status != models.SubscriptionPending {
		return nil, apperrors.ErrStaleWrite
	}
	inv.Status = models.SubscriptionCompleted
	inv.PaidAt = &at
	c := *inv
	return &c, nil
}

func (s *Store) ListSubscriptionInvoices(_ context.Context, hostelID int64) ([]*models.HostelSubscriptionInvoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.HostelSubscriptionInvoice, 0)
	for _, inv := range s.subscriptions {
		if inv.HostelID == hostelID {
			c := *inv
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year > result[j].Year
		}
		return result[i].Month > result[j].Month
	})
	return result, nil
}
