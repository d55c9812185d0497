package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/dberrors"
	"github.com/yigit/hostelhub/internal/pkg/helpers"
	"github.com/yigit/hostelhub/internal/pkg/logger"
)

var studentColumns = []string{
	"id", "user_id", "hostel_id", "full_name", "cnic", "phone", "guardian_name", "guardian_phone",
	"institute", "room_id", "bed_number", "monthly_fee", "security_deposit", "fee_status", "status",
	"admitted_at", "left_at", "created_at", "updated_at",
}

// StudentRepository handles student database operations, including the bed columns
type StudentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	st := &models.Student{}
	err := row.Scan(
		&st.ID, &st.UserID, &st.HostelID, &st.FullName, &st.CNIC, &st.Phone, &st.GuardianName, &st.GuardianPhone,
		&st.Institute, &st.RoomID, &st.BedNumber, &st.MonthlyFee, &st.SecurityDeposit, &st.FeeStatus, &st.Status,
		&st.AdmittedAt, &st.LeftAt, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (r *StudentRepository) queryStudents(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Student, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying students: %w", err)
	}
	defer rows.Close()

	students := []*models.Student{}
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning student row: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}
	return students, nil
}

// CreateStudent inserts a student without a bed. Beds are only written by AssignBed.
func (r *StudentRepository) CreateStudent(ctx context.Context, st *models.Student) error {
	admittedAt := st.AdmittedAt
	if admittedAt.IsZero() {
		admittedAt = time.Now()
	}

	sql, args, err := r.sb.Insert("students").
		Columns("user_id", "hostel_id", "full_name", "cnic", "phone", "guardian_name", "guardian_phone",
			"institute", "monthly_fee", "security_deposit", "fee_status", "status", "admitted_at").
		Values(st.UserID, st.HostelID, st.FullName, st.CNIC, st.Phone, st.GuardianName, st.GuardianPhone,
			st.Institute, st.MonthlyFee, st.SecurityDeposit, st.FeeStatus, st.Status, admittedAt).
		Suffix("RETURNING id, admitted_at, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create student query: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&st.ID, &st.AdmittedAt, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewResourceNotFoundError("hostel or user of the student does not exist")
		}
		logger.Error().Err(err).Int64("userID", st.UserID).Msg("Error executing create student query")
		return fmt.Errorf("error creating student: %w", err)
	}
	st.RoomID, st.BedNumber = nil, nil
	return nil
}

// GetStudentByID retrieves a student by ID
func (r *StudentRepository) GetStudentByID(ctx context.Context, id int64) (*models.Student, error) {
	sql, args, err := r.sb.Select(studentColumns...).
		From("students").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	st, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student by ID: %w", err)
	}
	return st, nil
}

// ListStudents returns one page of students matching filter and the total match count
func (r *StudentRepository) ListStudents(ctx context.Context, filter dto.StudentFilter) ([]*models.Student, int64, error) {
	where := squirrel.And{}
	if filter.HostelID != 0 {
		where = append(where, squirrel.Eq{"hostel_id": filter.HostelID})
	}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"status": filter.Status})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("students").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count students query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting students: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.PageSize)
	students, err := r.queryStudents(ctx, r.sb.Select(studentColumns...).
		From("students").
		Where(where).
		OrderBy("id ASC").
		Offset(offset).
		Limit(limit))
	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// ListActiveStudentsByHostel lists the ACTIVE students of a hostel by ID
func (r *StudentRepository) ListActiveStudentsByHostel(ctx context.Context, hostelID int64) ([]*models.Student, error) {
	return r.queryStudents(ctx, r.sb.Select(studentColumns...).
		From("students").
		Where(squirrel.Eq{"hostel_id": hostelID, "status": models.StudentActive}).
		OrderBy("id ASC"))
}

// CountActiveStudentsByHostel counts the ACTIVE students of a hostel
func (r *StudentRepository) CountActiveStudentsByHostel(ctx context.Context, hostelID int64) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("students").
		Where(squirrel.Eq{"hostel_id": hostelID, "status": models.StudentActive}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count active students query: %w", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting active students: %w", err)
	}
	return count, nil
}

// FindActiveBedHolder returns the ACTIVE student holding the bed, or nil when it is free
func (r *StudentRepository) FindActiveBedHolder(ctx context.Context, roomID int64, bedNumber string) (*models.Student, error) {
	sql, args, err := r.sb.Select(studentColumns...).
		From("students").
		Where(squirrel.Eq{"room_id": roomID, "bed_number": bedNumber, "status": models.StudentActive}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bed holder query: %w", err)
	}

	st, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding bed holder: %w", err)
	}
	return st, nil
}

// DeleteStudent removes the student. Their payments go with them through ON DELETE CASCADE.
func (r *StudentRepository) DeleteStudent(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("students").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete student query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("studentID", id).Msg("Error executing delete student query")
		return fmt.Errorf("error deleting student: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// MarkDeparted moves an ACTIVE student to status. It reports false when the student was not ACTIVE.
func (r *StudentRepository) MarkDeparted(ctx context.Context, id int64, status models.StudentStatus, at time.Time) (bool, error) {
	sql, args, err := r.sb.Update("students").
		Set("status", status).
		Set("left_at", at).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": models.StudentActive}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build depart student query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error marking student departed: %w", err)
	}
	if cmdTag.RowsAffected() > 0 {
		return true, nil
	}
	if _, err := r.GetStudentByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// AssignBed sets the bed of an ACTIVE student that holds none.
// The partial unique index on (room_id, bed_number) turns a lost race into ErrBedTaken.
func (r *StudentRepository) AssignBed(ctx context.Context, studentID, roomID int64, bedNumber string) error {
	sql, args, err := r.sb.Update("students").
		Set("room_id", roomID).
		Set("bed_number", bedNumber).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": studentID, "status": models.StudentActive, "room_id": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build assign bed query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return r.mapBedWriteError(err, studentID)
	}
	return r.checkBedWrite(ctx, cmdTag.RowsAffected(), studentID)
}

// MoveBed moves the student to another bed only while they still sit in fromRoomID
func (r *StudentRepository) MoveBed(ctx context.Context, studentID, fromRoomID, toRoomID int64, bedNumber string) error {
	sql, args, err := r.sb.Update("students").
		Set("room_id", toRoomID).
		Set("bed_number", bedNumber).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": studentID, "status": models.StudentActive, "room_id": fromRoomID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build move bed query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return r.mapBedWriteError(err, studentID)
	}
	return r.checkBedWrite(ctx, cmdTag.RowsAffected(), studentID)
}

func (r *StudentRepository) mapBedWriteError(err error, studentID int64) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintActiveBed):
		return apperrors.ErrBedTaken
	case dberrors.IsForeignKeyViolation(err):
		return apperrors.ErrRoomNotFound
	}
	logger.Error().Err(err).Int64("studentID", studentID).Msg("Error writing student bed")
	return fmt.Errorf("error writing student bed: %w", err)
}

// checkBedWrite tells a missing student apart from a failed precondition
func (r *StudentRepository) checkBedWrite(ctx context.Context, affected int64, studentID int64) error {
	if affected > 0 {
		return nil
	}
	if _, err := r.GetStudentByID(ctx, studentID); err != nil {
		return err
	}
	return apperrors.ErrStaleWrite
}

// ClearBed nulls the bed columns under a row lock and returns the room that was held.
// Of two concurrent calls only one sees the bed.
func (r *StudentRepository) ClearBed(ctx context.Context, studentID int64) (int64, bool, error) {
	query := `
		WITH prev AS (
			SELECT id, room_id FROM students WHERE id = $1 FOR UPDATE
		)
		UPDATE students
		SET room_id = NULL, bed_number = NULL, updated_at = NOW()
		FROM prev
		WHERE students.id = prev.id AND prev.room_id IS NOT NULL
		RETURNING prev.room_id
	`

	var roomID int64
	err := r.db.QueryRow(ctx, query, studentID).Scan(&roomID)
	if err == nil {
		return roomID, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		logger.Error().Err(err).Int64("studentID", studentID).Msg("Error clearing student bed")
		return 0, false, fmt.Errorf("error clearing student bed: %w", err)
	}
	if _, err := r.GetStudentByID(ctx, studentID); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

// SetFeeStatus writes the derived fee status of a student
func (r *StudentRepository) SetFeeStatus(ctx context.Context, studentID int64, status models.FeeStatus) error {
	sql, args, err := r.sb.Update("students").
		Set("fee_status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": studentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build fee status query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating fee status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}
