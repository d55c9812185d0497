package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/dberrors"
	"github.com/yigit/hostelhub/internal/pkg/logger"
)

var subscriptionColumns = []string{
	"id", "hostel_id", "month", "year", "active_student_count", "rate_per_student", "amount", "status",
	"paid_at", "created_at",
}

// SubscriptionRepository handles hostel subscription invoices
type SubscriptionRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanSubscription(row pgx.Row) (*models.HostelSubscriptionInvoice, error) {
	inv := &models.HostelSubscriptionInvoice{}
	err := row.Scan(&inv.ID, &inv.HostelID, &inv.Month, &inv.Year, &inv.ActiveStudentCount, &inv.RatePerStudent,
		&inv.Amount, &inv.Status, &inv.PaidAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateSubscriptionInvoice inserts an invoice. A second one for the same hostel and period
// yields ErrSubscriptionExists.
func (r *SubscriptionRepository) CreateSubscriptionInvoice(ctx context.Context, inv *models.HostelSubscriptionInvoice) error {
	sql, args, err := r.sb.Insert("hostel_subscription_invoices").
		Columns("hostel_id", "month", "year", "active_student_count", "rate_per_student", "amount", "status").
		Values(inv.HostelID, inv.Month, inv.Year, inv.ActiveStudentCount, inv.RatePerStudent, inv.Amount, inv.Status).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create subscription invoice query: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintSubscriptionMonth):
			return apperrors.ErrSubscriptionExists
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrHostelNotFound
		}
		logger.Error().Err(err).Int64("hostelID", inv.HostelID).Msg("Error executing create subscription invoice query")
		return fmt.Errorf("error creating subscription invoice: %w", err)
	}
	return nil
}

// GetSubscriptionInvoiceByID retrieves a subscription invoice by ID
func (r *SubscriptionRepository) GetSubscriptionInvoiceByID(ctx context.Context, id int64) (*models.HostelSubscriptionInvoice, error) {
	sql, args, err := r.sb.Select(subscriptionColumns...).
		From("hostel_subscription_invoices").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get subscription invoice query: %w", err)
	}

	inv, err := scanSubscription(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSubscriptionInvoiceNotFound
		}
		return nil, fmt.Errorf("error getting subscription invoice: %w", err)
	}
	return inv, nil
}

// MarkSubscriptionPaid completes a PENDING invoice
func (r *SubscriptionRepository) MarkSubscriptionPaid(ctx context.Context, id int64, at time.Time) (*models.HostelSubscriptionInvoice, error) {
	sql, args, err := r.sb.Update("hostel_subscription_invoices").
		Set("status", string(models.SubscriptionCompleted)).
		Set("paid_at", at).
		Where(squirrel.Eq{"id": id, "status": string(models.SubscriptionPending)}).
		Suffix("RETURNING " + strings.Join(subscriptionColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build mark subscription paid query: %w", err)
	}

	inv, err := scanSubscription(r.db.QueryRow(ctx, sql, args...))
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("error marking subscription invoice paid: %w", err)
	}
	if _, err := r.GetSubscriptionInvoiceByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, apperrors.ErrStaleWrite
}

// ListSubscriptionInvoices lists a hostel's invoices, newest period first
func (r *SubscriptionRepository) ListSubscriptionInvoices(ctx context.Context, hostelID int64) ([]*models.HostelSubscriptionInvoice, error) {
	sql, args, err := r.sb.Select(subscriptionColumns...).
		From("hostel_subscription_invoices").
		Where(squirrel.Eq{"hostel_id": hostelID}).
		OrderBy("year DESC", "month DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list subscription invoices query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying subscription invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*models.HostelSubscriptionInvoice{}
	for rows.Next() {
		inv, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning subscription invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription invoice rows: %w", err)
	}
	return invoices, nil
}
