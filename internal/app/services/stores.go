package services

import (
	"context"
	"time"

	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
)

// The interfaces below are what each service needs from storage. Both the postgres
// repositories and the in-memory store satisfy all of them. Write access to the
// denormalized fields is split so that only the owning service sees the mutator:
// CapacityStore (occupiedBeds) goes to the capacity ledger, BedStore (roomId/bedNumber)
// to the occupancy service, FeeStatusStore (feeStatus) to billing and payments.

// HostelStore persists hostels
type HostelStore interface {
	CreateHostel(ctx context.Context, hostel *models.Hostel) error
	GetHostelByID(ctx context.Context, id int64) (*models.Hostel, error)
	ListHostels(ctx context.Context, activeOnly bool) ([]*models.Hostel, error)
	SetHostelActive(ctx context.Context, id int64, active bool) error
}

// RoomReader exposes read-only room access
type RoomReader interface {
	GetRoomByID(ctx context.Context, id int64) (*models.Room, error)
	ListRoomsByHostel(ctx context.Context, hostelID int64) ([]*models.Room, error)
}

// RoomStore creates rooms. New rooms always start with zero occupied beds.
type RoomStore interface {
	RoomReader
	CreateRoom(ctx context.Context, room *models.Room) error
}

// CapacityStore mutates room counters. Every method is a single atomic statement at the storage layer.
type CapacityStore interface {
	RoomReader
	// AdjustOccupiedBeds applies delta only if the result stays within 0..totalBeds.
	// It returns ErrRoomFull or ErrCapacityUnderflow when the bound would be crossed.
	AdjustOccupiedBeds(ctx context.Context, roomID int64, delta int) (*models.Room, error)
	// ReconcileOccupiedBeds sets occupiedBeds to the number of active students in the room.
	ReconcileOccupiedBeds(ctx context.Context, roomID int64) (before, after int, err error)
	// ResizeRoom changes totalBeds; it returns ErrRoomFull when totalBeds would drop below occupiedBeds.
	ResizeRoom(ctx context.Context, roomID int64, totalBeds int) (*models.Room, error)
}

// StudentReader exposes read-only student access
type StudentReader interface {
	GetStudentByID(ctx context.Context, id int64) (*models.Student, error)
	ListStudents(ctx context.Context, filter dto.StudentFilter) ([]*models.Student, int64, error)
	ListActiveStudentsByHostel(ctx context.Context, hostelID int64) ([]*models.Student, error)
	CountActiveStudentsByHostel(ctx context.Context, hostelID int64) (int, error)
	// FindActiveBedHolder returns nil, nil when no active student holds the bed.
	FindActiveBedHolder(ctx context.Context, roomID int64, bedNumber string) (*models.Student, error)
}

// StudentStore manages the student record itself
type StudentStore interface {
	StudentReader
	CreateStudent(ctx context.Context, student *models.Student) error
	DeleteStudent(ctx context.Context, id int64) error
	// MarkDeparted moves an ACTIVE student to status; it reports false when the student was not ACTIVE.
	MarkDeparted(ctx context.Context, id int64, status models.StudentStatus, at time.Time) (bool, error)
}

// BedStore writes the (room, bed) pair of a student
type BedStore interface {
	StudentReader
	// AssignBed sets the bed of an active student that holds none. A competing
	// active holder of the same bed yields ErrBedTaken.
	AssignBed(ctx context.Context, studentID, roomID int64, bedNumber string) error
	// MoveBed swaps the bed only while the student still sits in fromRoomID.
	MoveBed(ctx context.Context, studentID, fromRoomID, toRoomID int64, bedNumber string) error
	// ClearBed nulls the bed fields and returns the room that was held.
	// cleared is false when the student held no bed.
	ClearBed(ctx context.Context, studentID int64) (roomID int64, cleared bool, err error)
}

// FeeStatusStore writes the student's derived fee status
type FeeStatusStore interface {
	SetFeeStatus(ctx context.Context, studentID int64, status models.FeeStatus) error
}

// PaymentStore persists invoices and their transitions
type PaymentStore interface {
	// CreatePayment returns ErrDuplicateReceipt when the receipt number is already used.
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error)
	// TransitionPayment applies update only if the current status is one of from.
	// It returns ErrStaleWrite when the precondition does not hold.
	TransitionPayment(ctx context.Context, id int64, from []models.PaymentStatus, update models.PaymentUpdate) (*models.Payment, error)
	CountPaymentsForPeriod(ctx context.Context, paymentType models.PaymentType, month, year int) (int, error)
	HasStudentInvoiceForPeriod(ctx context.Context, studentID int64, types []models.PaymentType, month, year int) (bool, error)
	// LastReceiptSequence returns the highest NNNN suffix among receipts starting with prefix, or 0.
	LastReceiptSequence(ctx context.Context, prefix string) (int, error)
	ListPayments(ctx context.Context, filter dto.PaymentFilter) ([]*models.Payment, int64, error)
	// MarkOverdue moves every UNPAID invoice of the period to OVERDUE and returns the moved rows.
	MarkOverdue(ctx context.Context, month, year int) ([]*models.Payment, error)
}

// AccountStore persists login accounts
type AccountStore interface {
	// CreateUser returns ErrUsernameTaken when the username is already used.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	DeleteUser(ctx context.Context, id int64) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// SubscriptionStore persists platform subscription invoices
type SubscriptionStore interface {
	// CreateSubscriptionInvoice returns ErrSubscriptionExists for a duplicate (hostel, month, year).
	CreateSubscriptionInvoice(ctx context.Context, invoice *models.HostelSubscriptionInvoice) error
	GetSubscriptionInvoiceByID(ctx context.Context, id int64) (*models.HostelSubscriptionInvoice, error)
	// MarkSubscriptionPaid returns ErrStaleWrite when the invoice is not PENDING.
	MarkSubscriptionPaid(ctx context.Context, id int64, at time.Time) (*models.HostelSubscriptionInvoice, error)
	ListSubscriptionInvoices(ctx context.Context, hostelID int64) ([]*models.HostelSubscriptionInvoice, error)
}

// RoomViewCache holds read projections of rooms. Misses and cache errors are not fatal.
type RoomViewCache interface {
	Get(ctx context.Context, roomID int64) (*dto.RoomView, bool)
	Set(ctx context.Context, view dto.RoomView)
	Invalidate(ctx context.Context, roomID int64)
}

// timeNow is swapped in tests
var timeNow = time.Now
