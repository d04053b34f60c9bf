package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"callflow-platform/pkg/utils"
)

// Repository is the persistence contract for alerts.
// Lookups report absence as (zero, false, nil).
type Repository interface {
	Create(ctx context.Context, a Alert) error
	List(ctx context.Context, ownerID string, f ListFilter) ([]Alert, error)
	UnreadCount(ctx context.Context, ownerID string, since time.Time) (int, error)
	MarkRead(ctx context.Context, ownerID, id string, at time.Time) (Alert, bool, error)
	MarkAllRead(ctx context.Context, ownerID string, at time.Time) (int64, error)
	DeleteSince(ctx context.Context, ownerID string, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type PostgresRepo struct {
	db utils.DBTX
}

func NewPostgresRepo(db utils.DBTX) *PostgresRepo { return &PostgresRepo{db: db} }

const alertColumns = `id, owner_id, type, title, message, related_client_id, related_booking_id, is_read, read_at, created_at`

func (r *PostgresRepo) Create(ctx context.Context, a Alert) error {
	const q = `INSERT INTO alerts (` + alertColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.OwnerID, string(a.Type), a.Title, a.Message,
		nullID(a.RelatedClient), nullID(a.RelatedBooking),
		a.IsRead, utils.NullTime(a.ReadAt), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, ownerID string, f ListFilter) ([]Alert, error) {
	var (
		where = []string{"owner_id = $1", "created_at >= $2"}
		args  = []any{ownerID, f.Since}
	)
	if f.IsRead != nil {
		args = append(args, *f.IsRead)
		where = append(where, fmt.Sprintf("is_read = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	q := `SELECT ` + alertColumns + ` FROM alerts WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UnreadCount(ctx context.Context, ownerID string, since time.Time) (int, error) {
	const q = `SELECT count(*) FROM alerts WHERE owner_id = $1 AND NOT is_read AND created_at >= $2`
	var n int
	if err := r.db.QueryRowContext(ctx, q, ownerID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread alerts: %w", err)
	}
	return n, nil
}

func (r *PostgresRepo) MarkRead(ctx context.Context, ownerID, id string, at time.Time) (Alert, bool, error) {
	// read_at keeps the first read time.
	const q = `UPDATE alerts
SET is_read = TRUE, read_at = COALESCE(read_at, $3)
WHERE owner_id = $1 AND id = $2
RETURNING ` + alertColumns
	a, err := scanAlert(r.db.QueryRowContext(ctx, q, ownerID, id, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Alert{}, false, nil
		}
		return Alert{}, false, fmt.Errorf("mark alert read: %w", err)
	}
	return a, true, nil
}

func (r *PostgresRepo) MarkAllRead(ctx context.Context, ownerID string, at time.Time) (int64, error) {
	const q = `UPDATE alerts SET is_read = TRUE, read_at = $2 WHERE owner_id = $1 AND NOT is_read`
	res, err := r.db.ExecContext(ctx, q, ownerID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all alerts read: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepo) DeleteSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	const q = `DELETE FROM alerts WHERE owner_id = $1 AND created_at >= $2`
	res, err := r.db.ExecContext(ctx, q, ownerID, since)
	if err != nil {
		return 0, fmt.Errorf("clear alerts: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM alerts WHERE created_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge alerts: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (Alert, error) {
	var (
		a               Alert
		typ             string
		client, booking sql.NullString
		readAt          sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.OwnerID, &typ, &a.Title, &a.Message, &client, &booking, &a.IsRead, &readAt, &a.CreatedAt); err != nil {
		return Alert{}, err
	}
	a.Type = Type(typ)
	a.RelatedClient = utils.StringPtr(client)
	a.RelatedBooking = utils.StringPtr(booking)
	a.ReadAt = utils.TimePtr(readAt)
	return a, nil
}

func nullID(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return utils.NullString(*v)
}
