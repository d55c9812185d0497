package auth

import (
	"context"
	"fmt"

	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

// Actor is the authenticated caller of a request
type Actor struct {
	UserID   int64
	Role     models.RoleType
	HostelID *int64
}

// HasRole reports whether the actor holds one of roles
func (a Actor) HasRole(roles ...models.RoleType) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

type hostelReader interface {
	GetHostelByID(ctx context.Context, id int64) (*models.Hostel, error)
}

type roomReader interface {
	GetRoomByID(ctx context.Context, id int64) (*models.Room, error)
}

type studentReader interface {
	GetStudentByID(ctx context.Context, id int64) (*models.Student, error)
}

type paymentReader interface {
	GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error)
}

// AuthorizationService scopes staff to their hostel and students to their own records
type AuthorizationService struct {
	hostels  hostelReader
	rooms    roomReader
	students studentReader
	payments paymentReader
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(hostels hostelReader, rooms roomReader, students studentReader, payments paymentReader) *AuthorizationService {
	return &AuthorizationService{
		hostels:  hostels,
		rooms:    rooms,
		students: students,
		payments: payments,
	}
}

// CanAccessHostel allows admins everywhere, owners on hostels they own or are bound to,
// and everyone else only on the hostel in their token
func (s *AuthorizationService) CanAccessHostel(ctx context.Context, actor Actor, hostelID int64) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.HostelID != nil && *actor.HostelID == hostelID {
		// Still resolve the hostel so a stale token on a removed hostel reports 404
		_, err := s.hostels.GetHostelByID(ctx, hostelID)
		return err
	}
	if actor.Role == models.RoleOwner {
		hostel, err := s.hostels.GetHostelByID(ctx, hostelID)
		if err != nil {
			return err
		}
		if hostel.OwnerID != nil && *hostel.OwnerID == actor.UserID {
			return nil
		}
	}
	return apperrors.NewForbiddenError(fmt.Sprintf("no access to hostel %d", hostelID))
}

// CanAccessRoom checks access to the hostel the room belongs to
func (s *AuthorizationService) CanAccessRoom(ctx context.Context, actor Actor, roomID int64) error {
	room, err := s.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	return s.CanAccessHostel(ctx, actor, room.HostelID)
}

// CanAccessStudent lets a student see only their own record; staff go through the hostel check
func (s *AuthorizationService) CanAccessStudent(ctx context.Context, actor Actor, studentID int64) error {
	student, err := s.students.GetStudentByID(ctx, studentID)
	if err != nil {
		return err
	}
	return s.canAccessStudentRecord(ctx, actor, student)
}

func (s *AuthorizationService) canAccessStudentRecord(ctx context.Context, actor Actor, student *models.Student) error {
	if actor.Role == models.RoleStudent {
		if student.UserID == actor.UserID {
			return nil
		}
		return apperrors.NewForbiddenError("students can only access their own records")
	}
	return s.CanAccessHostel(ctx, actor, student.HostelID)
}

// CanAccessPayment applies the student rule to the payment's owner
func (s *AuthorizationService) CanAccessPayment(ctx context.Context, actor Actor, paymentID int64) error {
	payment, err := s.payments.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleStudent {
		return s.CanAccessHostel(ctx, actor, payment.HostelID)
	}
	student, err := s.students.GetStudentByID(ctx, payment.StudentID)
	if err != nil {
		return err
	}
	return s.canAccessStudentRecord(ctx, actor, student)
}
