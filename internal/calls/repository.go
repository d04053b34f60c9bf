package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"callflow-platform/pkg/utils"
)

var (
	ErrNotFound = errors.New("call event not found")
	// ErrDuplicate is returned by Create when another event already holds the
	// same (owner, external call id).
	ErrDuplicate = errors.New("call event already exists")
)

// Repository is the persistence contract for call events.
// No Delete is provided; bulk deletion belongs to account management.
type Repository interface {
	FindByExternalID(ctx context.Context, ownerID, externalCallID string) (CallEvent, bool, error)
	Create(ctx context.Context, e CallEvent) error
	Update(ctx context.Context, e CallEvent) error
	SetLinks(ctx context.Context, ownerID, id string, customerID, bookingID *string, at time.Time) error
}

type PostgresRepo struct {
	db utils.DBTX
}

func NewPostgresRepo(db utils.DBTX) *PostgresRepo { return &PostgresRepo{db: db} }

const eventColumns = `id, owner_id, external_call_id, caller_name, caller_number, service_name,
price_minor, currency, summary, transcript, outcome, duration_seconds, started_at, ended_at,
related_client_id, related_booking_id, created_at, updated_at`

func (r *PostgresRepo) FindByExternalID(ctx context.Context, ownerID, externalCallID string) (CallEvent, bool, error) {
	if externalCallID == "" {
		return CallEvent{}, false, nil
	}
	const q = `SELECT ` + eventColumns + `
FROM call_events
WHERE owner_id = $1 AND external_call_id = $2
LIMIT 1`

	var (
		e                   CallEvent
		price               sql.NullInt64
		duration            sql.NullInt32
		started, ended      sql.NullTime
		customerID, booking sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, ownerID, externalCallID).Scan(
		&e.ID,
		&e.OwnerID,
		&e.ExternalCallID,
		&e.CallerName,
		&e.CallerNumber,
		&e.ServiceName,
		&price,
		&e.Currency,
		&e.Summary,
		&e.Transcript,
		&e.Outcome,
		&duration,
		&started,
		&ended,
		&customerID,
		&booking,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallEvent{}, false, nil
		}
		return CallEvent{}, false, err
	}
	if price.Valid {
		v := price.Int64
		e.PriceMinor = &v
	}
	if duration.Valid {
		v := int(duration.Int32)
		e.DurationSeconds = &v
	}
	e.StartedAt = utils.TimePtr(started)
	e.EndedAt = utils.TimePtr(ended)
	e.CustomerID = utils.StringPtr(customerID)
	e.BookingID = utils.StringPtr(booking)
	return e, true, nil
}

func (r *PostgresRepo) Create(ctx context.Context, e CallEvent) error {
	const q = `INSERT INTO call_events (` + eventColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.OwnerID, e.ExternalCallID, e.CallerName, e.CallerNumber, e.ServiceName,
		nullInt64(e.PriceMinor), e.Currency, e.Summary, e.Transcript, e.Outcome, nullInt(e.DurationSeconds),
		utils.NullTime(e.StartedAt), utils.NullTime(e.EndedAt),
		nullID(e.CustomerID), nullID(e.BookingID), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if utils.IsUniqueViolation(err) {
			return fmt.Errorf("create call event: %w", ErrDuplicate)
		}
		return fmt.Errorf("create call event: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, e CallEvent) error {
	const q = `UPDATE call_events SET
	caller_name = $3, caller_number = $4, service_name = $5,
	price_minor = $6, currency = $7, summary = $8, transcript = $9, outcome = $10,
	duration_seconds = $11, started_at = $12, ended_at = $13, updated_at = $14
WHERE owner_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q,
		e.OwnerID, e.ID, e.CallerName, e.CallerNumber, e.ServiceName,
		nullInt64(e.PriceMinor), e.Currency, e.Summary, e.Transcript, e.Outcome,
		nullInt(e.DurationSeconds), utils.NullTime(e.StartedAt), utils.NullTime(e.EndedAt), e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update call event: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepo) SetLinks(ctx context.Context, ownerID, id string, customerID, bookingID *string, at time.Time) error {
	const q = `UPDATE call_events
SET related_client_id = $3, related_booking_id = $4, updated_at = $5
WHERE owner_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, ownerID, id, nullID(customerID), nullID(bookingID), at)
	if err != nil {
		return fmt.Errorf("link call event: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

func nullID(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return utils.NullString(*v)
}
