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
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/dberrors"
	"github.com/yigit/hostelhub/internal/pkg/helpers"
	"github.com/yigit/hostelhub/internal/pkg/logger"
)

var paymentColumns = []string{
	"id", "student_id", "hostel_id", "amount", "month", "year", "payment_type", "status", "is_verified",
	"payment_proof", "receipt_number", "description", "verified_by", "verified_at", "paid_at",
	"created_at", "updated_at",
}

// PaymentRepository handles invoice database operations
type PaymentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(
		&p.ID, &p.StudentID, &p.HostelID, &p.Amount, &p.Month, &p.Year, &p.PaymentType, &p.Status, &p.IsVerified,
		&p.PaymentProof, &p.ReceiptNumber, &p.Description, &p.VerifiedBy, &p.VerifiedAt, &p.PaidAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func collectPayments(rows pgx.Rows) ([]*models.Payment, error) {
	defer rows.Close()

	payments := []*models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment rows: %w", err)
	}
	return payments, nil
}

// CreatePayment inserts an invoice. A reused receipt number yields ErrDuplicateReceipt.
func (r *PaymentRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	sql, args, err := r.sb.Insert("payments").
		Columns("student_id", "hostel_id", "amount", "month", "year", "payment_type", "status",
			"receipt_number", "description").
		Values(p.StudentID, p.HostelID, p.Amount, p.Month, p.Year, p.PaymentType, p.Status,
			p.ReceiptNumber, p.Description).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create payment query: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintReceiptNumber):
			return apperrors.ErrDuplicateReceipt
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Int64("studentID", p.StudentID).Str("receipt", p.ReceiptNumber).
			Msg("Error executing create payment query")
		return fmt.Errorf("error creating payment: %w", err)
	}
	return nil
}

// GetPaymentByID retrieves a payment by ID
func (r *PaymentRepository) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	sql, args, err := r.sb.Select(paymentColumns...).
		From("payments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get payment query: %w", err)
	}

	p, err := scanPayment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error getting payment by ID: %w", err)
	}
	return p, nil
}

// TransitionPayment is a compare-and-set on status: the update applies only while the
// current status is one of from
func (r *PaymentRepository) TransitionPayment(ctx context.Context, id int64, from []models.PaymentStatus, u models.PaymentUpdate) (*models.Payment, error) {
	query := r.sb.Update("payments").
		Set("status", u.Status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": statusStrings(from)}).
		Suffix("RETURNING " + strings.Join(paymentColumns, ", "))
	if u.IsVerified != nil {
		query = query.Set("is_verified", *u.IsVerified)
	}
	if u.PaymentProof != nil {
		query = query.Set("payment_proof", *u.PaymentProof)
	}
	if u.VerifiedBy != nil {
		query = query.Set("verified_by", *u.VerifiedBy)
	}
	if u.VerifiedAt != nil {
		query = query.Set("verified_at", *u.VerifiedAt)
	}
	if u.PaidAt != nil {
		query = query.Set("paid_at", *u.PaidAt)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build payment transition query: %w", err)
	}

	p, err := scanPayment(r.db.QueryRow(ctx, sql, args...))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		logger.Error().Err(err).Int64("paymentID", id).Msg("Error executing payment transition")
		return nil, fmt.Errorf("error updating payment: %w", err)
	}
	if _, err := r.GetPaymentByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, apperrors.ErrStaleWrite
}

func statusStrings(statuses []models.PaymentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// CountPaymentsForPeriod counts invoices of one type in a billing period
func (r *PaymentRepository) CountPaymentsForPeriod(ctx context.Context, paymentType models.PaymentType, month, year int) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("payments").
		Where(squirrel.Eq{"payment_type": string(paymentType), "month": month, "year": year}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count payments query: %w", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting payments: %w", err)
	}
	return count, nil
}

// HasStudentInvoiceForPeriod reports whether the student has an invoice of any of types in the period
func (r *PaymentRepository) HasStudentInvoiceForPeriod(ctx context.Context, studentID int64, types []models.PaymentType, month, year int) (bool, error) {
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}

	sql, args, err := r.sb.Select("1").
		From("payments").
		Where(squirrel.Eq{"student_id": studentID, "payment_type": typeNames, "month": month, "year": year}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build invoice exists query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking student invoice: %w", err)
	}
	return exists, nil
}

// LastReceiptSequence returns the highest numeric suffix of receipt numbers that start with prefix
func (r *PaymentRepository) LastReceiptSequence(ctx context.Context, prefix string) (int, error) {
	sql, args, err := r.sb.Select().
		Column(squirrel.Expr("COALESCE(MAX(CAST(SUBSTRING(receipt_number FROM ?) AS INTEGER)), 0)", len(prefix)+1)).
		From("payments").
		Where(squirrel.Like{"receipt_number": prefix + "%"}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build receipt sequence query: %w", err)
	}

	var last int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&last); err != nil {
		return 0, fmt.Errorf("error reading receipt sequence: %w", err)
	}
	return last, nil
}

// ListPayments returns one page of payments matching filter, newest first
func (r *PaymentRepository) ListPayments(ctx context.Context, filter dto.PaymentFilter) ([]*models.Payment, int64, error) {
	where := squirrel.And{}
	if filter.StudentID != 0 {
		where = append(where, squirrel.Eq{"student_id": filter.StudentID})
	}
	if filter.HostelID != 0 {
		where = append(where, squirrel.Eq{"hostel_id": filter.HostelID})
	}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.Month != 0 {
		where = append(where, squirrel.Eq{"month": filter.Month})
	}
	if filter.Year != 0 {
		where = append(where, squirrel.Eq{"year": filter.Year})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("payments").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count payments query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting payments: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.PageSize)
	sql, args, err := r.sb.Select(paymentColumns...).
		From("payments").
		Where(where).
		OrderBy("id DESC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list payments query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying payments: %w", err)
	}
	payments, err := collectPayments(rows)
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// MarkOverdue moves every UNPAID invoice of the period to OVERDUE and returns them
func (r *PaymentRepository) MarkOverdue(ctx context.Context, month, year int) ([]*models.Payment, error) {
	sql, args, err := r.sb.Update("payments").
		Set("status", string(models.PaymentOverdue)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"status": string(models.PaymentUnpaid), "month": month, "year": year}).
		Suffix("RETURNING " + strings.Join(paymentColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build mark overdue query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int("month", month).Int("year", year).Msg("Error marking invoices overdue")
		return nil, fmt.Errorf("error marking invoices overdue: %w", err)
	}
	return collectPayments(rows)
}
