package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/logger"
)

var hostelColumns = []string{"id", "name", "address", "owner_id", "is_active", "created_at", "updated_at"}

// HostelRepository handles hostel database operations
type HostelRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewHostelRepository creates a new HostelRepository
func NewHostelRepository(db *pgxpool.Pool) *HostelRepository {
	return &HostelRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanHostel(row pgx.Row) (*models.Hostel, error) {
	h := &models.Hostel{}
	err := row.Scan(&h.ID, &h.Name, &h.Address, &h.OwnerID, &h.IsActive, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// CreateHostel inserts a hostel and fills its generated fields
func (r *HostelRepository) CreateHostel(ctx context.Context, hostel *models.Hostel) error {
	sql, args, err := r.sb.Insert("hostels").
		Columns("name", "address", "owner_id", "is_active").
		Values(hostel.Name, hostel.Address, hostel.OwnerID, hostel.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create hostel query: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&hostel.ID, &hostel.CreatedAt, &hostel.UpdatedAt)
	if err != nil {
		logger.Error().Err(err).Str("name", hostel.Name).Msg("Error executing create hostel query")
		return fmt.Errorf("error creating hostel: %w", err)
	}
	return nil
}

// GetHostelByID retrieves a hostel by ID
func (r *HostelRepository) GetHostelByID(ctx context.Context, id int64) (*models.Hostel, error) {
	sql, args, err := r.sb.Select(hostelColumns...).
		From("hostels").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get hostel query: %w", err)
	}

	hostel, err := scanHostel(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrHostelNotFound
		}
		logger.Error().Err(err).Int64("hostelID", id).Msg("Error scanning hostel row")
		return nil, fmt.Errorf("error getting hostel by ID: %w", err)
	}
	return hostel, nil
}

// ListHostels lists hostels by ID, optionally only the active ones
func (r *HostelRepository) ListHostels(ctx context.Context, activeOnly bool) ([]*models.Hostel, error) {
	query := r.sb.Select(hostelColumns...).From("hostels").OrderBy("id ASC")
	if activeOnly {
		query = query.Where(squirrel.Eq{"is_active": true})
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list hostels query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying hostels: %w", err)
	}
	defer rows.Close()

	hostels := []*models.Hostel{}
	for rows.Next() {
		hostel, err := scanHostel(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning hostel row: %w", err)
		}
		hostels = append(hostels, hostel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hostel rows: %w", err)
	}
	return hostels, nil
}

// SetHostelActive toggles the hostel's active flag
func (r *HostelRepository) SetHostelActive(ctx context.Context, id int64, active bool) error {
	sql, args, err := r.sb.Update("hostels").
		Set("is_active", active).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update hostel query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("hostelID", id).Msg("Error executing update hostel query")
		return fmt.Errorf("error updating hostel: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrHostelNotFound
	}
	return nil
}
