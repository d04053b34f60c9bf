package audit

import (
	"context"
	"fmt"

	"callflow-platform/pkg/utils"
)

// PostgresRepo appends to webhook_audit. There is no UPDATE or DELETE path.
type PostgresRepo struct {
	db utils.DBTX
}

func NewPostgresRepo(db utils.DBTX) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `INSERT INTO webhook_audit
	(id, type, owner_id, route, token_prefix, ip_address, external_call_id, call_event_id, outcome, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), utils.NullString(e.OwnerID), e.Route,
		e.TokenPrefix, e.IPAddress, e.ExternalCallID, e.CallEventID, e.Outcome, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
