// Package store owns the Postgres schema shared by the repositories.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"callflow-platform/pkg/utils"
)

// statements are idempotent and applied in order on every start.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		webhook_token TEXT,
		timezone TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_webhook_token ON users (webhook_token) WHERE webhook_token IS NOT NULL AND webhook_token <> ''`,

	`CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users (id),
		name TEXT NOT NULL,
		email TEXT,
		phone_number TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clients_owner ON clients (owner_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users (id),
		name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_services_owner ON services (owner_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users (id),
		client_id TEXT NOT NULL REFERENCES clients (id),
		service_id TEXT REFERENCES services (id),
		starts_at TIMESTAMPTZ NOT NULL,
		ends_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_owner_client ON bookings (owner_id, client_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS call_events (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users (id),
		external_call_id TEXT NOT NULL DEFAULT '',
		caller_name TEXT NOT NULL DEFAULT '',
		caller_number TEXT NOT NULL DEFAULT '',
		service_name TEXT NOT NULL DEFAULT '',
		price_minor BIGINT,
		currency VARCHAR(8) NOT NULL DEFAULT 'USD',
		summary TEXT NOT NULL DEFAULT '',
		transcript TEXT NOT NULL DEFAULT '',
		outcome VARCHAR(64) NOT NULL DEFAULT '',
		duration_seconds INTEGER,
		started_at TIMESTAMPTZ,
		ended_at TIMESTAMPTZ,
		related_client_id TEXT REFERENCES clients (id) ON DELETE SET NULL,
		related_booking_id TEXT REFERENCES bookings (id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_call_events_external ON call_events (owner_id, external_call_id) WHERE external_call_id <> ''`,

	`CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users (id),
		type TEXT NOT NULL DEFAULT 'info',
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		related_client_id TEXT REFERENCES clients (id) ON DELETE SET NULL,
		related_booking_id TEXT REFERENCES bookings (id) ON DELETE SET NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		read_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_owner_created ON alerts (owner_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS webhook_audit (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		owner_id TEXT,
		route TEXT NOT NULL,
		token_prefix TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		external_call_id TEXT NOT NULL DEFAULT '',
		call_event_id TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates any missing tables and indexes.
func Migrate(ctx context.Context, db utils.DBTX) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}

// Bootstrap applies Migrate in one transaction, so a failed start leaves the
// schema as it was.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	return utils.WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return Migrate(ctx, tx)
	})
}
