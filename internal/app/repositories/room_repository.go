package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/dberrors"
	"github.com/yigit/hostelhub/internal/pkg/logger"
)

var roomColumns = []string{"id", "hostel_id", "room_number", "total_beds", "occupied_beds", "created_at", "updated_at"}

// RoomRepository handles room database operations. The counter updates are single
// conditional statements so that concurrent callers never push occupied_beds out of bounds.
type RoomRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewRoomRepository creates a new RoomRepository
func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	room := &models.Room{}
	err := row.Scan(&room.ID, &room.HostelID, &room.RoomNumber, &room.TotalBeds, &room.OccupiedBeds,
		&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// CreateRoom inserts an empty room
func (r *RoomRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	sql, args, err := r.sb.Insert("rooms").
		Columns("hostel_id", "room_number", "total_beds", "occupied_beds").
		Values(room.HostelID, room.RoomNumber, room.TotalBeds, 0).
		Suffix("RETURNING id, occupied_beds, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create room query: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&room.ID, &room.OccupiedBeds, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintRoomNumber):
			return apperrors.ErrRoomNumberTaken
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrHostelNotFound
		}
		logger.Error().Err(err).Int64("hostelID", room.HostelID).Msg("Error executing create room query")
		return fmt.Errorf("error creating room: %w", err)
	}
	return nil
}

// GetRoomByID retrieves a room by ID
func (r *RoomRepository) GetRoomByID(ctx context.Context, id int64) (*models.Room, error) {
	sql, args, err := r.sb.Select(roomColumns...).
		From("rooms").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get room query: %w", err)
	}

	room, err := scanRoom(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, fmt.Errorf("error getting room by ID: %w", err)
	}
	return room, nil
}

// ListRoomsByHostel lists a hostel's rooms ordered by room number
func (r *RoomRepository) ListRoomsByHostel(ctx context.Context, hostelID int64) ([]*models.Room, error) {
	sql, args, err := r.sb.Select(roomColumns...).
		From("rooms").
		Where(squirrel.Eq{"hostel_id": hostelID}).
		OrderBy("room_number ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list rooms query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*models.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning room row: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room rows: %w", err)
	}
	return rooms, nil
}

// AdjustOccupiedBeds adds delta to occupied_beds only when the result stays within 0..total_beds
func (r *RoomRepository) AdjustOccupiedBeds(ctx context.Context, roomID int64, delta int) (*models.Room, error) {
	sql, args, err := r.sb.Update("rooms").
		Set("occupied_beds", squirrel.Expr("occupied_beds + ?", delta)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": roomID}).
		Where("occupied_beds + ? BETWEEN 0 AND total_beds", delta).
		Suffix("RETURNING " + strings.Join(roomColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build adjust room query: %w", err)
	}

	room, err := scanRoom(r.db.QueryRow(ctx, sql, args...))
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		logger.Error().Err(err).Int64("roomID", roomID).Int("delta", delta).Msg("Error adjusting occupied beds")
		return nil, fmt.Errorf("error adjusting occupied beds: %w", err)
	}

	// Nothing matched: either the room is gone or the bound would have been crossed.
	if _, err := r.GetRoomByID(ctx, roomID); err != nil {
		return nil, err
	}
	if delta > 0 {
		return nil, apperrors.ErrRoomFull
	}
	return nil, apperrors.ErrCapacityUnderflow
}

// ReconcileOccupiedBeds recounts the active students holding a bed in the room under a row lock
func (r *RoomRepository) ReconcileOccupiedBeds(ctx context.Context, roomID int64) (int, int, error) {
	query := `
		WITH prev AS (
			SELECT id, occupied_beds FROM rooms WHERE id = $1 FOR UPDATE
		)
		UPDATE rooms
		SET occupied_beds = (
				SELECT COUNT(*) FROM students
				WHERE students.room_id = $1 AND students.status = 'ACTIVE'
			),
			updated_at = CASE
				WHEN rooms.occupied_beds = (
					SELECT COUNT(*) FROM students
					WHERE students.room_id = $1 AND students.status = 'ACTIVE'
				) THEN rooms.updated_at
				ELSE NOW()
			END
		FROM prev
		WHERE rooms.id = prev.id
		RETURNING prev.occupied_beds, rooms.occupied_beds
	`

	var before, after int
	err := r.db.QueryRow(ctx, query, roomID).Scan(&before, &after)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, apperrors.ErrRoomNotFound
		}
		if dberrors.IsCheckViolation(err, dberrors.ConstraintRoomOccupancy) {
			logger.Error().Int64("roomID", roomID).Msg("More active bed holders than beds in room")
		}
		return 0, 0, fmt.Errorf("error reconciling occupied beds: %w", err)
	}
	return before, after, nil
}

// ResizeRoom sets total_beds unless the room already holds more students than that
func (r *RoomRepository) ResizeRoom(ctx context.Context, roomID int64, totalBeds int) (*models.Room, error) {
	sql, args, err := r.sb.Update("rooms").
		Set("total_beds", totalBeds).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": roomID}).
		Where(squirrel.LtOrEq{"occupied_beds": totalBeds}).
		Suffix("RETURNING " + strings.Join(roomColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build resize room query: %w", err)
	}

	room, err := scanRoom(r.db.QueryRow(ctx, sql, args...))
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("error resizing room: %w", err)
	}
	if _, err := r.GetRoomByID(ctx, roomID); err != nil {
		return nil, err
	}
	return nil, apperrors.ErrRoomFull
}
