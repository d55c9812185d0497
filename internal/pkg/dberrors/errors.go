package dberrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	checkViolation      = "23514"
	foreignKeyViolation = "23503"
)

// Constraint names declared in migrations/001_init.sql
const (
	ConstraintRoomNumber        = "rooms_hostel_room_number_key"
	ConstraintActiveBed         = "students_active_bed_key"
	ConstraintReceiptNumber     = "payments_receipt_number_key"
	ConstraintUsername          = "users_username_key"
	ConstraintSubscriptionMonth = "hostel_subscription_invoices_period_key"
	ConstraintRoomOccupancy     = "rooms_occupancy_check"
)

// IsDuplicateConstraintError checks if the error is a PostgreSQL unique violation error
// for a specific constraint.
func IsDuplicateConstraintError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraintName
}

// IsCheckViolation reports a CHECK constraint failure for the named constraint.
func IsCheckViolation(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == checkViolation && pgErr.ConstraintName == constraintName
}

// IsForeignKeyViolation reports a reference to a row that does not exist.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
