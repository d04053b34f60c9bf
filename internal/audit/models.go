package audit

import "time"

// Event is an immutable, append-only record of one webhook delivery.
//
// Invariants:
// - Events are never updated or deleted.
// - Only a token prefix is stored, never the full webhook token.
// - Capture is best-effort; a failed append never fails the webhook.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// OwnerID is empty when the delivery could not be routed.
	OwnerID string `json:"owner_id,omitempty" db:"owner_id"`

	// Route is "default" or "token".
	Route       string `json:"route" db:"route"`
	TokenPrefix string `json:"token_prefix,omitempty" db:"token_prefix"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	ExternalCallID string `json:"external_call_id,omitempty" db:"external_call_id"`
	CallEventID    string `json:"call_event_id,omitempty" db:"call_event_id"`

	// Outcome is the ingest action, or the rejection reason.
	Outcome string `json:"outcome" db:"outcome"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeWebhookProcessed EventType = "webhook_processed"
	EventTypeWebhookRejected  EventType = "webhook_rejected"
)
