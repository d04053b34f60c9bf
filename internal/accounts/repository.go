package accounts

import (
	"context"
	"database/sql"
	"errors"

	"callflow-platform/pkg/utils"
)

// Repository is the read contract for owners.
// Lookups report absence as (Owner{}, false, nil).
type Repository interface {
	FindActiveByEmail(ctx context.Context, email string) (Owner, bool, error)
	FirstActive(ctx context.Context) (Owner, bool, error)
	FindActiveByWebhookToken(ctx context.Context, token string) (Owner, bool, error)
	FindActiveByID(ctx context.Context, id string) (Owner, bool, error)
}

// PostgresRepo reads owners from the users table.
type PostgresRepo struct {
	db utils.DBTX
}

func NewPostgresRepo(db utils.DBTX) *PostgresRepo { return &PostgresRepo{db: db} }

const ownerColumns = `id, email, is_active, COALESCE(webhook_token, ''), COALESCE(timezone, ''), created_at`

func (r *PostgresRepo) FindActiveByEmail(ctx context.Context, email string) (Owner, bool, error) {
	const q = `SELECT ` + ownerColumns + `
FROM users
WHERE lower(email) = lower($1) AND is_active
LIMIT 1`
	return r.one(ctx, q, email)
}

func (r *PostgresRepo) FirstActive(ctx context.Context) (Owner, bool, error) {
	const q = `SELECT ` + ownerColumns + `
FROM users
WHERE is_active
ORDER BY created_at, id
LIMIT 1`
	return r.one(ctx, q)
}

func (r *PostgresRepo) FindActiveByWebhookToken(ctx context.Context, token string) (Owner, bool, error) {
	const q = `SELECT ` + ownerColumns + `
FROM users
WHERE webhook_token = $1 AND is_active
LIMIT 1`
	return r.one(ctx, q, token)
}

func (r *PostgresRepo) FindActiveByID(ctx context.Context, id string) (Owner, bool, error) {
	const q = `SELECT ` + ownerColumns + `
FROM users
WHERE id = $1 AND is_active`
	return r.one(ctx, q, id)
}

func (r *PostgresRepo) one(ctx context.Context, q string, args ...any) (Owner, bool, error) {
	var o Owner
	err := r.db.QueryRowContext(ctx, q, args...).Scan(
		&o.ID,
		&o.Email,
		&o.IsActive,
		&o.WebhookToken,
		&o.Timezone,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Owner{}, false, nil
		}
		return Owner{}, false, err
	}
	return o, true, nil
}
