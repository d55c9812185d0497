package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

// RoomLedger is what room administration needs from the capacity ledger
type RoomLedger interface {
	Reconcile(ctx context.Context, roomID int64) (*models.Room, error)
	Resize(ctx context.Context, roomID int64, totalBeds int) (*models.Room, error)
}

// HostelService manages hostels and rooms and serves room views
type HostelService struct {
	hostels HostelStore
	rooms   RoomStore
	ledger  RoomLedger
	cache   RoomViewCache
	logger  zerolog.Logger
}

// NewHostelService creates a new hostel service
func NewHostelService(hostels HostelStore, rooms RoomStore, ledger RoomLedger, cache RoomViewCache, logger zerolog.Logger) *HostelService {
	return &HostelService{
		hostels: hostels,
		rooms:   rooms,
		ledger:  ledger,
		cache:   cache,
		logger:  logger,
	}
}

// CreateHostel registers a new, active hostel
func (s *HostelService) CreateHostel(ctx context.Context, req dto.CreateHostelRequest) (*models.Hostel, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name cannot be empty")
	}

	hostel := &models.Hostel{
		Name:     name,
		Address:  strings.TrimSpace(req.Address),
		OwnerID:  req.OwnerID,
		IsActive: true,
	}
	if err := s.hostels.CreateHostel(ctx, hostel); err != nil {
		return nil, fmt.Errorf("error creating hostel: %w", err)
	}

	s.logger.Info().Int64("hostelID", hostel.ID).Str("name", hostel.Name).Msg("Hostel created")
	return hostel, nil
}

// GetHostel retrieves a hostel by ID
func (s *HostelService) GetHostel(ctx context.Context, id int64) (*models.Hostel, error) {
	return s.hostels.GetHostelByID(ctx, id)
}

// ListHostels lists hostels, optionally only the active ones
func (s *HostelService) ListHostels(ctx context.Context, activeOnly bool) ([]*models.Hostel, error) {
	return s.hostels.ListHostels(ctx, activeOnly)
}

// SetHostelStatus activates or deactivates a hostel. Inactive hostels are skipped by billing runs.
func (s *HostelService) SetHostelStatus(ctx context.Context, id int64, active bool) (*models.Hostel, error) {
	if err := s.hostels.SetHostelActive(ctx, id, active); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("hostelID", id).Bool("active", active).Msg("Hostel status changed")
	return s.hostels.GetHostelByID(ctx, id)
}

// CreateRoom adds an empty room to a hostel
func (s *HostelService) CreateRoom(ctx context.Context, hostelID int64, req dto.CreateRoomRequest) (*dto.RoomView, error) {
	roomNumber := strings.TrimSpace(req.RoomNumber)
	if roomNumber == "" {
		return nil, apperrors.NewValidationError("room number cannot be empty")
	}
	if req.TotalBeds < 1 {
		return nil, apperrors.NewValidationError("totalBeds must be at least 1")
	}
	if _, err := s.hostels.GetHostelByID(ctx, hostelID); err != nil {
		return nil, err
	}

	room := &models.Room{
		HostelID:   hostelID,
		RoomNumber: roomNumber,
		TotalBeds:  req.TotalBeds,
	}
	if err := s.rooms.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("roomID", room.ID).Int64("hostelID", hostelID).Str("roomNumber", roomNumber).Msg("Room created")
	view := dto.NewRoomView(room)
	return &view, nil
}

// GetRoomView returns the read projection of a room, from cache when possible
func (s *HostelService) GetRoomView(ctx context.Context, roomID int64) (*dto.RoomView, error) {
	if view, ok := s.cache.Get(ctx, roomID); ok {
		return view, nil
	}

	room, err := s.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	view := dto.NewRoomView(room)
	s.cache.Set(ctx, view)
	return &view, nil
}

// ListRoomViews returns the views of every room in a hostel
func (s *HostelService) ListRoomViews(ctx context.Context, hostelID int64) ([]dto.RoomView, error) {
	if _, err := s.hostels.GetHostelByID(ctx, hostelID); err != nil {
		return nil, err
	}
	rooms, err := s.rooms.ListRoomsByHostel(ctx, hostelID)
	if err != nil {
		return nil, fmt.Errorf("error listing rooms: %w", err)
	}

	views := make([]dto.RoomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, dto.NewRoomView(room))
	}
	return views, nil
}

// ResizeRoom changes the bed count of a room through the ledger
func (s *HostelService) ResizeRoom(ctx context.Context, roomID int64, totalBeds int) (*dto.RoomView, error) {
	room, err := s.ledger.Resize(ctx, roomID, totalBeds)
	if err != nil {
		return nil, err
	}
	view := dto.NewRoomView(room)
	return &view, nil
}

// ReconcileRoom forces a recount of a room's occupied beds
func (s *HostelService) ReconcileRoom(ctx context.Context, roomID int64) (*dto.RoomView, error) {
	room, err := s.ledger.Reconcile(ctx, roomID)
	if err != nil {
		return nil, err
	}
	view := dto.NewRoomView(room)
	return &view, nil
}
