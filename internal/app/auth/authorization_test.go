package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/repositories/memory"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

type world struct {
	authz    *AuthorizationService
	owner    *models.User
	hostel   *models.Hostel
	other    *models.Hostel
	room     *models.Room
	student  *models.Student
	payment  *models.Payment
	resident *models.User
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	owner := &models.User{Username: "owner", RoleType: models.RoleOwner, IsActive: true}
	if err := store.CreateUser(ctx, owner); err != nil {
		t.Fatal(err)
	}
	hostel := &models.Hostel{Name: "Iqbal Hall", OwnerID: &owner.ID, IsActive: true}
	other := &models.Hostel{Name: "Jinnah Hall", IsActive: true}
	for _, h := range []*models.Hostel{hostel, other} {
		if err := store.CreateHostel(ctx, h); err != nil {
			t.Fatal(err)
		}
	}
	room := &models.Room{HostelID: hostel.ID, RoomNumber: "A-1", TotalBeds: 2}
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatal(err)
	}
	resident := &models.User{Username: "resident", RoleType: models.RoleStudent, HostelID: &hostel.ID, IsActive: true}
	if err := store.CreateUser(ctx, resident); err != nil {
		t.Fatal(err)
	}
	student := &models.Student{UserID: resident.ID, HostelID: hostel.ID, FullName: "Resident", Status: models.StudentActive}
	if err := store.CreateStudent(ctx, student); err != nil {
		t.Fatal(err)
	}
	payment := &models.Payment{
		StudentID: student.ID, HostelID: hostel.ID, Amount: 100, Month: 3, Year: 2025,
		PaymentType: models.PaymentFine, Status: models.PaymentUnpaid, ReceiptNumber: "RCP-202503-0001",
	}
	if err := store.CreatePayment(ctx, payment); err != nil {
		t.Fatal(err)
	}

	return &world{
		authz:    NewAuthorizationService(store, store, store, store),
		owner:    owner,
		hostel:   hostel,
		other:    other,
		room:     room,
		student:  student,
		payment:  payment,
		resident: resident,
	}
}

func TestCanAccessHostel(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		actor    Actor
		hostelID int64
		wantErr  error
	}{
		{"admin anywhere", Actor{UserID: 99, Role: models.RoleAdmin}, w.other.ID, nil},
		{"owner of hostel", Actor{UserID: w.owner.ID, Role: models.RoleOwner}, w.hostel.ID, nil},
		{"owner of another hostel", Actor{UserID: w.owner.ID, Role: models.RoleOwner}, w.other.ID, apperrors.ErrPermissionDenied},
		{"manager bound to hostel", Actor{UserID: 7, Role: models.RoleManager, HostelID: &w.hostel.ID}, w.hostel.ID, nil},
		{"manager elsewhere", Actor{UserID: 7, Role: models.RoleManager, HostelID: &w.hostel.ID}, w.other.ID, apperrors.ErrPermissionDenied},
		{"manager without hostel", Actor{UserID: 7, Role: models.RoleManager}, w.hostel.ID, apperrors.ErrPermissionDenied},
		{"bound to missing hostel", Actor{UserID: 7, Role: models.RoleManager, HostelID: ptr(int64(404))}, 404, apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.authz.CanAccessHostel(ctx, tt.actor, tt.hostelID)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CanAccessHostel() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CanAccessHostel() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanAccessRoom(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	manager := Actor{UserID: 7, Role: models.RoleManager, HostelID: &w.hostel.ID}
	if err := w.authz.CanAccessRoom(ctx, manager, w.room.ID); err != nil {
		t.Fatalf("CanAccessRoom() error = %v", err)
	}
	if err := w.authz.CanAccessRoom(ctx, manager, 12345); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("CanAccessRoom(missing) error = %v, want not found", err)
	}
	stranger := Actor{UserID: 7, Role: models.RoleManager, HostelID: &w.other.ID}
	if err := w.authz.CanAccessRoom(ctx, stranger, w.room.ID); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("CanAccessRoom(other hostel) error = %v, want permission denied", err)
	}
}

func TestStudentsSeeOnlyTheirOwnRecords(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	self := Actor{UserID: w.resident.ID, Role: models.RoleStudent, HostelID: &w.hostel.ID}
	roommate := Actor{UserID: w.resident.ID + 100, Role: models.RoleStudent, HostelID: &w.hostel.ID}

	if err := w.authz.CanAccessStudent(ctx, self, w.student.ID); err != nil {
		t.Fatalf("CanAccessStudent(self) error = %v", err)
	}
	if err := w.authz.CanAccessPayment(ctx, self, w.payment.ID); err != nil {
		t.Fatalf("CanAccessPayment(self) error = %v", err)
	}
	if err := w.authz.CanAccessStudent(ctx, roommate, w.student.ID); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("CanAccessStudent(roommate) error = %v, want permission denied", err)
	}
	if err := w.authz.CanAccessPayment(ctx, roommate, w.payment.ID); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("CanAccessPayment(roommate) error = %v, want permission denied", err)
	}
}

func TestStaffPaymentAccessFollowsHostel(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if err := w.authz.CanAccessPayment(ctx, Actor{UserID: w.owner.ID, Role: models.RoleOwner}, w.payment.ID); err != nil {
		t.Fatalf("CanAccessPayment(owner) error = %v", err)
	}
	other := Actor{UserID: 7, Role: models.RoleManager, HostelID: &w.other.ID}
	if err := w.authz.CanAccessPayment(ctx, other, w.payment.ID); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("CanAccessPayment(other manager) error = %v, want permission denied", err)
	}
	if err := w.authz.CanAccessPayment(ctx, other, 9999); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("CanAccessPayment(missing) error = %v, want not found", err)
	}
}

func TestActorHasRole(t *testing.T) {
	a := Actor{Role: models.RoleManager}
	if !a.HasRole(models.RoleAdmin, models.RoleManager) {
		t.Error("manager should match")
	}
	if a.HasRole(models.RoleAdmin, models.RoleOwner) {
		t.Error("manager should not match admin/owner")
	}
}

func ptr[T any](v T) *T { return &v }
