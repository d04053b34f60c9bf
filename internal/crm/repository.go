package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"callflow-platform/pkg/utils"
)

// Repository is the slice of the CRM store the entity resolver needs.
// Lookups report absence as (zero, false, nil).
type Repository interface {
	// ListCustomers returns every customer of the owner in a stable order
	// (oldest first).
	ListCustomers(ctx context.Context, ownerID string) ([]Customer, error)
	CreateCustomer(ctx context.Context, c Customer) error

	// LatestBookingCreatedBetween returns the most recently created booking
	// for (owner, client) whose created_at lies in [from, to].
	LatestBookingCreatedBetween(ctx context.Context, ownerID, clientID string, from, to time.Time) (Booking, bool, error)
	CreateBooking(ctx context.Context, b Booking) error

	// ActiveServiceByName matches the service name case-insensitively.
	ActiveServiceByName(ctx context.Context, ownerID, name string) (Service, bool, error)
	FirstActiveService(ctx context.Context, ownerID string) (Service, bool, error)
}

type PostgresRepo struct {
	db utils.DBTX
}

func NewPostgresRepo(db utils.DBTX) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListCustomers(ctx context.Context, ownerID string) ([]Customer, error) {
	const q = `SELECT id, owner_id, name, COALESCE(email, ''), COALESCE(phone_number, ''), created_at
FROM clients
WHERE owner_id = $1
ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.PhoneNumber, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CreateCustomer(ctx context.Context, c Customer) error {
	const q = `INSERT INTO clients (id, owner_id, name, email, phone_number, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, q, c.ID, c.OwnerID, c.Name, c.Email, c.PhoneNumber, c.CreatedAt); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (r *PostgresRepo) LatestBookingCreatedBetween(ctx context.Context, ownerID, clientID string, from, to time.Time) (Booking, bool, error) {
	const q = `SELECT id, owner_id, client_id, service_id, starts_at, ends_at, status, COALESCE(notes, ''), created_at
FROM bookings
WHERE owner_id = $1 AND client_id = $2 AND created_at >= $3 AND created_at <= $4
ORDER BY created_at DESC, id DESC
LIMIT 1`
	var (
		b         Booking
		serviceID sql.NullString
		status    string
	)
	err := r.db.QueryRowContext(ctx, q, ownerID, clientID, from, to).Scan(
		&b.ID,
		&b.OwnerID,
		&b.ClientID,
		&serviceID,
		&b.StartsAt,
		&b.EndsAt,
		&status,
		&b.Notes,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Booking{}, false, nil
		}
		return Booking{}, false, err
	}
	b.ServiceID = utils.StringPtr(serviceID)
	b.Status = BookingStatus(status)
	return b, true, nil
}

func (r *PostgresRepo) CreateBooking(ctx context.Context, b Booking) error {
	const q = `INSERT INTO bookings (id, owner_id, client_id, service_id, starts_at, ends_at, status, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	var serviceID sql.NullString
	if b.ServiceID != nil {
		serviceID = utils.NullString(*b.ServiceID)
	}
	_, err := r.db.ExecContext(ctx, q,
		b.ID, b.OwnerID, b.ClientID, serviceID,
		b.StartsAt, b.EndsAt, string(b.Status), b.Notes, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ActiveServiceByName(ctx context.Context, ownerID, name string) (Service, bool, error) {
	const q = `SELECT id, owner_id, name, is_active, created_at
FROM services
WHERE owner_id = $1 AND lower(name) = lower($2) AND is_active
ORDER BY created_at, id
LIMIT 1`
	return r.oneService(ctx, q, ownerID, name)
}

func (r *PostgresRepo) FirstActiveService(ctx context.Context, ownerID string) (Service, bool, error) {
	const q = `SELECT id, owner_id, name, is_active, created_at
FROM services
WHERE owner_id = $1 AND is_active
ORDER BY created_at, id
LIMIT 1`
	return r.oneService(ctx, q, ownerID)
}

func (r *PostgresRepo) oneService(ctx context.Context, q string, args ...any) (Service, bool, error) {
	var s Service
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&s.ID, &s.OwnerID, &s.Name, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Service{}, false, nil
		}
		return Service{}, false, err
	}
	return s, true, nil
}
