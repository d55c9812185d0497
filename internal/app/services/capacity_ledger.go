package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

// CapacityLedger is the only writer of room.occupiedBeds
type CapacityLedger struct {
	rooms  CapacityStore
	cache  RoomViewCache
	logger zerolog.Logger
}

// NewCapacityLedger creates a ledger over the given store
func NewCapacityLedger(rooms CapacityStore, cache RoomViewCache, logger zerolog.Logger) *CapacityLedger {
	return &CapacityLedger{
		rooms:  rooms,
		cache:  cache,
		logger: logger,
	}
}

// Reconcile recomputes occupiedBeds from the active students in the room and returns the corrected room
func (l *CapacityLedger) Reconcile(ctx context.Context, roomID int64) (*models.Room, error) {
	before, after, err := l.rooms.ReconcileOccupiedBeds(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("reconcile room %d: %w", roomID, err)
	}
	if before != after {
		l.logger.Warn().
			Int64("roomID", roomID).
			Int("recorded", before).
			Int("actual", after).
			Msg("Corrected occupied bed drift")
		l.cache.Invalidate(ctx, roomID)
	}

	return l.rooms.GetRoomByID(ctx, roomID)
}

// Adjust atomically applies delta to occupiedBeds. Crossing either bound is rejected, never clamped.
func (l *CapacityLedger) Adjust(ctx context.Context, roomID int64, delta int) (*models.Room, error) {
	room, err := l.rooms.AdjustOccupiedBeds(ctx, roomID, delta)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRoomFull, apperrors.ErrCapacityUnderflow, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("adjust room %d by %d: %w", roomID, delta, err)
	}
	l.cache.Invalidate(ctx, roomID)

	l.logger.Debug().
		Int64("roomID", roomID).
		Int("delta", delta).
		Int("occupiedBeds", room.OccupiedBeds).
		Msg("Adjusted occupied beds")
	return room, nil
}

// Resize changes a room's bed count. The room is reconciled first so the check runs against real occupancy.
func (l *CapacityLedger) Resize(ctx context.Context, roomID int64, totalBeds int) (*models.Room, error) {
	if totalBeds < 1 {
		return nil, apperrors.NewValidationError("totalBeds must be at least 1")
	}
	if _, err := l.Reconcile(ctx, roomID); err != nil {
		return nil, err
	}

	room, err := l.rooms.ResizeRoom(ctx, roomID, totalBeds)
	if err != nil {
		if errors.Is(err, apperrors.ErrRoomFull) {
			return nil, apperrors.NewCustomError(apperrors.ErrRoomFull,
				"cannot shrink the room below the number of occupied beds")
		}
		return nil, err
	}
	l.cache.Invalidate(ctx, roomID)

	l.logger.Info().Int64("roomID", roomID).Int("totalBeds", totalBeds).Msg("Room resized")
	return room, nil
}
