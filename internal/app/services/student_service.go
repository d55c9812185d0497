package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fiam/gounidecode/unidecode"
	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/helpers"
	"github.com/yigit/hostelhub/internal/pkg/saga"
)

const (
	maxUsernameStem = 20
	cnicSuffixLen   = 4
)

// Occupancy is what the student lifecycle needs from the occupancy service
type Occupancy interface {
	CheckPlacement(ctx context.Context, hostelID, roomID int64, bedNumber string, exceptStudentID int64) (*Placement, error)
	Assign(ctx context.Context, studentID, roomID int64, bedNumber string) (*models.Student, error)
	Move(ctx context.Context, studentID, newRoomID int64, newBedNumber string) (*models.Student, error)
	Release(ctx context.Context, studentID int64) (bool, error)
}

// InitialInvoicer raises the admission invoice
type InitialInvoicer interface {
	CreateInitialInvoice(ctx context.Context, student *models.Student) (*models.Payment, error)
}

// PasswordHasher hashes a plain-text password for storage
type PasswordHasher func(password string) (string, error)

// StudentService runs the admission and departure workflows
type StudentService struct {
	accounts         AccountStore
	students         StudentStore
	hostels          HostelStore
	occupancy        Occupancy
	invoicer         InitialInvoicer
	hashPassword     PasswordHasher
	usernameAttempts int
	logger           zerolog.Logger
}

// NewStudentService creates a new student service
func NewStudentService(
	accounts AccountStore,
	students StudentStore,
	hostels HostelStore,
	occupancy Occupancy,
	invoicer InitialInvoicer,
	hashPassword PasswordHasher,
	usernameAttempts int,
	logger zerolog.Logger,
) *StudentService {
	if usernameAttempts < 1 {
		usernameAttempts = 1
	}
	return &StudentService{
		accounts:         accounts,
		students:         students,
		hostels:          hostels,
		occupancy:        occupancy,
		invoicer:         invoicer,
		hashPassword:     hashPassword,
		usernameAttempts: usernameAttempts,
		logger:           logger,
	}
}

// Admit creates the account, the student record, the bed assignment and the admission invoice.
// Any failure after the account exists undoes the completed steps in reverse and is returned
// as an *apperrors.AdmissionError wrapping the original failure.
func (s *StudentService) Admit(ctx context.Context, req dto.AdmitStudentRequest) (*dto.AdmissionResponse, error) {
	hostel, err := s.hostels.GetHostelByID(ctx, req.HostelID)
	if err != nil {
		return nil, err
	}
	if !hostel.IsActive {
		return nil, apperrors.NewValidationError("hostel %d is not accepting admissions", hostel.ID)
	}

	cnicDigits := digitsOnly(req.CNIC)
	if len(cnicDigits) < cnicSuffixLen {
		return nil, apperrors.NewValidationError("cnic must contain at least %d digits", cnicSuffixLen)
	}
	if req.MonthlyFee < 0 || req.SecurityDeposit < 0 {
		return nil, apperrors.NewValidationError("fees cannot be negative")
	}

	// Fail before writing anything when the bed cannot be had.
	if _, err := s.occupancy.CheckPlacement(ctx, hostel.ID, req.RoomID, req.BedNumber, 0); err != nil {
		return nil, err
	}

	password := req.Password
	if password == "" {
		password = cnicDigits
	}
	hashed, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	hostelID := hostel.ID
	user := &models.User{
		Password: hashed,
		FullName: strings.TrimSpace(req.FullName),
		RoleType: models.RoleStudent,
		HostelID: &hostelID,
		IsActive: true,
	}
	if err := s.createAccount(ctx, user, usernameStem(req.FullName, cnicDigits)); err != nil {
		return nil, err
	}

	log := s.logger.With().Str("username", user.Username).Int64("hostelID", hostel.ID).Logger()
	sg := saga.New("admission", log)
	sg.Completed("account", func(ctx context.Context) error {
		return s.accounts.DeleteUser(ctx, user.ID)
	})

	fail := func(step string, cause error) error {
		if compErr := sg.Compensate(ctx); compErr != nil {
			log.Error().Err(compErr).Str("step", step).Msg("Admission compensation incomplete")
		}
		return &apperrors.AdmissionError{Step: step, Err: cause}
	}

	student := &models.Student{
		UserID:          user.ID,
		HostelID:        hostel.ID,
		FullName:        user.FullName,
		CNIC:            strings.TrimSpace(req.CNIC),
		Phone:           req.Phone,
		GuardianName:    req.GuardianName,
		GuardianPhone:   req.GuardianPhone,
		Institute:       req.Institute,
		MonthlyFee:      req.MonthlyFee,
		SecurityDeposit: req.SecurityDeposit,
		FeeStatus:       models.FeeDue,
		Status:          models.StudentActive,
		AdmittedAt:      timeNow(),
	}
	if err := s.students.CreateStudent(ctx, student); err != nil {
		return nil, fail("student", err)
	}
	sg.Completed("student", func(ctx context.Context) error {
		return s.students.DeleteStudent(ctx, student.ID)
	})

	assigned, err := s.occupancy.Assign(ctx, student.ID, req.RoomID, req.BedNumber)
	if err != nil {
		return nil, fail("bed", err)
	}
	sg.Completed("bed", func(ctx context.Context) error {
		_, err := s.occupancy.Release(ctx, student.ID)
		return err
	})

	invoice, err := s.invoicer.CreateInitialInvoice(ctx, assigned)
	if err != nil {
		return nil, fail("invoice", err)
	}

	log.Info().Int64("studentID", assigned.ID).Str("receipt", invoice.ReceiptNumber).Msg("Student admitted")
	return &dto.AdmissionResponse{
		Student:        assigned,
		Username:       user.Username,
		InitialInvoice: invoice,
	}, nil
}

// createAccount stores user under the first free name of stem, stem-2, stem-3 ...
func (s *StudentService) createAccount(ctx context.Context, user *models.User, stem string) error {
	for i := 1; i <= s.usernameAttempts; i++ {
		candidate := stem
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", stem, i)
		}

		exists, err := s.accounts.UsernameExists(ctx, candidate)
		if err != nil {
			return fmt.Errorf("error checking username: %w", err)
		}
		if exists {
			continue
		}

		user.Username = candidate
		err = s.accounts.CreateUser(ctx, user)
		if errors.Is(err, apperrors.ErrUsernameTaken) {
			// Taken between the check and the insert.
			continue
		}
		return err
	}
	return apperrors.ErrUsernameExhausted
}

// usernameStem transliterates the name to lowercase ASCII letters and digits and appends
// the last four CNIC digits
func usernameStem(fullName, cnicDigits string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(unidecode.Unidecode(fullName)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == maxUsernameStem {
			break
		}
	}
	name := b.String()
	if name == "" {
		name = "student"
	}
	return name + cnicDigits[len(cnicDigits)-cnicSuffixLen:]
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Depart ends a student's residency. Managers perform a soft departure that keeps the record
// as LEFT; admins and owners delete the student and the account. The bed is released first
// in both cases, and departing an already departed student changes nothing.
func (s *StudentService) Depart(ctx context.Context, studentID int64, actor models.RoleType) (*models.Student, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbiddenError("only staff can remove students")
	}

	student, err := s.students.GetStudentByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.occupancy.Release(ctx, student.ID); err != nil {
		return nil, fmt.Errorf("error releasing bed: %w", err)
	}

	if actor == models.RoleManager {
		changed, err := s.students.MarkDeparted(ctx, student.ID, models.StudentLeft, timeNow())
		if err != nil {
			return nil, err
		}
		if changed {
			s.logger.Info().Int64("studentID", student.ID).Msg("Student marked as left")
		}
		return s.students.GetStudentByID(ctx, student.ID)
	}

	if err := s.students.DeleteStudent(ctx, student.ID); err != nil {
		return nil, err
	}
	if err := s.accounts.DeleteUser(ctx, student.UserID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("student deleted but account removal failed: %w", err)
	}
	s.logger.Info().Int64("studentID", student.ID).Str("actor", string(actor)).Msg("Student deleted")
	return nil, nil
}

// Move relocates a student within their hostel
func (s *StudentService) Move(ctx context.Context, studentID int64, req dto.MoveStudentRequest) (*models.Student, error) {
	return s.occupancy.Move(ctx, studentID, req.TargetRoomID, req.TargetBedNumber)
}

// GetStudent retrieves a student by ID
func (s *StudentService) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	return s.students.GetStudentByID(ctx, id)
}

// ListStudents returns one page of a hostel's students
func (s *StudentService) ListStudents(ctx context.Context, filter dto.StudentFilter) (*dto.StudentListResponse, error) {
	if _, err := s.hostels.GetHostelByID(ctx, filter.HostelID); err != nil {
		return nil, err
	}
	students, total, err := s.students.ListStudents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	return &dto.StudentListResponse{
		Students:   students,
		Pagination: helpers.NewPaginationInfo(total, filter.Page, filter.PageSize),
	}, nil
}
