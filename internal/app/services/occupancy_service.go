package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/saga"
)

const maxBedNumberLength = 10

// Ledger is what the occupancy service needs from the capacity ledger
type Ledger interface {
	Reconcile(ctx context.Context, roomID int64) (*models.Room, error)
	Adjust(ctx context.Context, roomID int64, delta int) (*models.Room, error)
}

// OccupancyService assigns, moves and releases (room, bed) pairs
type OccupancyService struct {
	beds   BedStore
	ledger Ledger
	logger zerolog.Logger
}

// NewOccupancyService creates a new occupancy service
func NewOccupancyService(beds BedStore, ledger Ledger, logger zerolog.Logger) *OccupancyService {
	return &OccupancyService{
		beds:   beds,
		ledger: ledger,
		logger: logger,
	}
}

// Placement is a validated target for a bed assignment
type Placement struct {
	Room      *models.Room
	BedNumber string
}

// CheckPlacement verifies that bedNumber in roomID can take a student of hostelID.
// The room is reconciled first. A bed held by someone else is reported as ErrBedTaken
// even when the room is also full. exceptStudentID is ignored as a holder.
func (s *OccupancyService) CheckPlacement(ctx context.Context, hostelID, roomID int64, bedNumber string, exceptStudentID int64) (*Placement, error) {
	room, err := s.ledger.Reconcile(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HostelID != hostelID {
		return nil, apperrors.ErrRoomNotInHostel
	}

	bed, err := normalizeBed(room, bedNumber)
	if err != nil {
		return nil, err
	}

	holder, err := s.beds.FindActiveBedHolder(ctx, room.ID, bed)
	if err != nil {
		return nil, fmt.Errorf("error checking bed holder: %w", err)
	}
	if holder != nil && holder.ID != exceptStudentID {
		return nil, apperrors.ErrBedTaken
	}

	if room.AvailableBeds() == 0 {
		return nil, apperrors.ErrRoomFull
	}

	return &Placement{Room: room, BedNumber: bed}, nil
}

// normalizeBed trims the bed label and bounds numeric labels by the room size
func normalizeBed(room *models.Room, bedNumber string) (string, error) {
	bed := strings.TrimSpace(bedNumber)
	if bed == "" || len(bed) > maxBedNumberLength {
		return "", apperrors.ErrInvalidBed
	}
	if n, err := strconv.Atoi(bed); err == nil {
		if n < 1 || n > room.TotalBeds {
			return "", apperrors.NewCustomError(apperrors.ErrInvalidBed,
				fmt.Sprintf("bed number must be between 1 and %d", room.TotalBeds))
		}
		bed = strconv.Itoa(n)
	}
	return bed, nil
}

// Assign gives an active student without a bed the given bed
func (s *OccupancyService) Assign(ctx context.Context, studentID, roomID int64, bedNumber string) (*models.Student, error) {
	student, err := s.beds.GetStudentByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !student.IsActive() {
		return nil, apperrors.ErrStudentInactive
	}
	if student.HasBed() {
		return nil, apperrors.ErrAlreadyAssigned
	}

	placement, err := s.CheckPlacement(ctx, student.HostelID, roomID, bedNumber, student.ID)
	if err != nil {
		return nil, err
	}

	if err := s.beds.AssignBed(ctx, student.ID, roomID, placement.BedNumber); err != nil {
		if errors.Is(err, apperrors.ErrStaleWrite) {
			return nil, apperrors.ErrAlreadyAssigned
		}
		return nil, err
	}

	if _, err := s.ledger.Adjust(ctx, roomID, +1); err != nil {
		// Another admission took the last bed between our check and the increment.
		if _, _, clearErr := s.beds.ClearBed(context.WithoutCancel(ctx), student.ID); clearErr != nil {
			s.logger.Error().Err(clearErr).Int64("studentID", student.ID).Int64("roomID", roomID).
				Msg("Failed to roll back bed assignment")
		}
		return nil, err
	}

	s.logger.Info().
		Int64("studentID", student.ID).
		Int64("roomID", roomID).
		Str("bedNumber", placement.BedNumber).
		Msg("Bed assigned")
	return s.beds.GetStudentByID(ctx, student.ID)
}

// Move relocates a student to another bed. The bed row is written before either counter
// moves, the same way Assign and Release order their writes, so a reconcile running in
// between can only leave a counter too high. A failed claim moves the student back.
// A student without a bed is simply assigned.
func (s *OccupancyService) Move(ctx context.Context, studentID, newRoomID int64, newBedNumber string) (*models.Student, error) {
	student, err := s.beds.GetStudentByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !student.IsActive() {
		return nil, apperrors.ErrStudentInactive
	}
	if !student.HasBed() {
		return s.Assign(ctx, studentID, newRoomID, newBedNumber)
	}

	oldRoomID, oldBed := *student.RoomID, *student.BedNumber
	sameRoom := oldRoomID == newRoomID

	var placement *Placement
	if sameRoom {
		// The student already counts towards this room, so only the bed label changes.
		room, err := s.ledger.Reconcile(ctx, newRoomID)
		if err != nil {
			return nil, err
		}
		bed, err := normalizeBed(room, newBedNumber)
		if err != nil {
			return nil, err
		}
		if bed == oldBed {
			return student, nil
		}
		holder, err := s.beds.FindActiveBedHolder(ctx, room.ID, bed)
		if err != nil {
			return nil, fmt.Errorf("error checking bed holder: %w", err)
		}
		if holder != nil {
			return nil, apperrors.ErrBedTaken
		}
		placement = &Placement{Room: room, BedNumber: bed}
	} else {
		// The decrement below needs a source counter that matches its bed rows.
		if _, err := s.ledger.Reconcile(ctx, oldRoomID); err != nil {
			return nil, err
		}
		placement, err = s.CheckPlacement(ctx, student.HostelID, newRoomID, newBedNumber, student.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.beds.MoveBed(ctx, student.ID, oldRoomID, newRoomID, placement.BedNumber); err != nil {
		if errors.Is(err, apperrors.ErrStaleWrite) {
			return nil, apperrors.NewConflictError("student was moved or released concurrently")
		}
		return nil, err
	}

	if !sameRoom {
		if err := s.moveCounters(ctx, student.ID, oldRoomID, oldBed, newRoomID); err != nil {
			return nil, err
		}
	}

	s.logger.Info().
		Int64("studentID", student.ID).
		Int64("fromRoomID", oldRoomID).
		Int64("toRoomID", newRoomID).
		Str("bedNumber", placement.BedNumber).
		Msg("Student moved")
	return s.beds.GetStudentByID(ctx, student.ID)
}

// moveCounters claims the target room for a student whose bed row already points at it,
// then frees the source room. A failed claim puts the student back in oldBed.
func (s *OccupancyService) moveCounters(ctx context.Context, studentID, oldRoomID int64, oldBed string, newRoomID int64) error {
	sg := saga.New("move", s.logger)
	sg.Completed("bed", func(ctx context.Context) error {
		return s.beds.MoveBed(ctx, studentID, newRoomID, oldRoomID, oldBed)
	})

	fail := func(cause error) error {
		compErr := sg.Compensate(ctx)
		if compErr == nil {
			return cause
		}
		s.logger.Error().Err(compErr).
			Int64("studentID", studentID).
			Int64("fromRoomID", oldRoomID).
			Int64("toRoomID", newRoomID).
			Msg("Move rollback incomplete")
		return fmt.Errorf("%w; rollback incomplete: %v", cause, compErr)
	}

	if _, err := s.ledger.Adjust(ctx, newRoomID, +1); err != nil {
		return fail(err)
	}
	sg.Completed("claim new room", func(ctx context.Context) error {
		_, err := s.ledger.Adjust(ctx, newRoomID, -1)
		return err
	})

	if _, err := s.ledger.Adjust(ctx, oldRoomID, -1); err != nil {
		s.logger.Warn().Err(err).Int64("studentID", studentID).Int64("roomID", oldRoomID).
			Msg("Decrement after move failed, reconciling")
		if _, recErr := s.ledger.Reconcile(ctx, oldRoomID); recErr != nil {
			return fail(errors.Join(err, recErr))
		}
	}
	return nil
}

// Release frees the student's bed. Releasing a student without a bed is a no-op;
// released reports whether a bed was actually freed.
func (s *OccupancyService) Release(ctx context.Context, studentID int64) (released bool, err error) {
	roomID, cleared, err := s.beds.ClearBed(ctx, studentID)
	if err != nil {
		return false, err
	}
	if !cleared {
		return false, nil
	}

	if _, err := s.ledger.Adjust(ctx, roomID, -1); err != nil {
		// The bed is already free; let reconciliation repair the counter instead of failing the release.
		s.logger.Warn().Err(err).Int64("studentID", studentID).Int64("roomID", roomID).
			Msg("Decrement after release failed, reconciling")
		if _, recErr := s.ledger.Reconcile(ctx, roomID); recErr != nil {
			return true, fmt.Errorf("release student %d: %w", studentID, errors.Join(err, recErr))
		}
	}

	s.logger.Info().Int64("studentID", studentID).Int64("roomID", roomID).Msg("Bed released")
	return true, nil
}
