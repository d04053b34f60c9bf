package calls

import "time"

// CallEvent is one reconciled voice-call record.
//
// Tenancy invariant: OwnerID is required on every row.
// Idempotency invariant: at most one row per (OwnerID, non-empty ExternalCallID).
//
// Money is kept in minor units; PriceMinor is nil when the webhook carried no
// usable price.
type CallEvent struct {
	ID             string `json:"id" db:"id"`
	OwnerID        string `json:"owner_id" db:"owner_id"`
	ExternalCallID string `json:"external_call_id,omitempty" db:"external_call_id"`

	CallerName   string `json:"caller_name" db:"caller_name"`
	CallerNumber string `json:"caller_number" db:"caller_number"`
	ServiceName  string `json:"service_name" db:"service_name"`

	PriceMinor *int64 `json:"price_minor,omitempty" db:"price_minor"`
	Currency   string `json:"currency" db:"currency"`

	Summary    string `json:"summary" db:"summary"`
	Transcript string `json:"transcript" db:"transcript"`
	Outcome    string `json:"outcome" db:"outcome"`

	DurationSeconds *int       `json:"duration_seconds,omitempty" db:"duration_seconds"`
	StartedAt       *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	CustomerID *string `json:"related_client,omitempty" db:"related_client_id"`
	BookingID  *string `json:"related_booking,omitempty" db:"related_booking_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasContent reports whether the event carries any transcript or summary text.
func (e CallEvent) HasContent() bool {
	return e.Transcript != "" || e.Summary != ""
}

// CallTime is the moment used for booking proximity: the end of the call when
// known, else the record creation time.
func (e CallEvent) CallTime() time.Time {
	if e.EndedAt != nil {
		return *e.EndedAt
	}
	return e.CreatedAt
}

// Merge copies every non-empty field of in over e. Identity, ownership,
// creation time and resolved links are never touched.
func (e *CallEvent) Merge(in CallEvent) {
	mergeString(&e.CallerName, in.CallerName)
	mergeString(&e.CallerNumber, in.CallerNumber)
	mergeString(&e.ServiceName, in.ServiceName)
	mergeString(&e.Currency, in.Currency)
	mergeString(&e.Summary, in.Summary)
	mergeString(&e.Transcript, in.Transcript)
	mergeString(&e.Outcome, in.Outcome)

	if in.PriceMinor != nil {
		e.PriceMinor = in.PriceMinor
	}
	if in.DurationSeconds != nil {
		e.DurationSeconds = in.DurationSeconds
	}
	if in.StartedAt != nil {
		e.StartedAt = in.StartedAt
	}
	if in.EndedAt != nil {
		e.EndedAt = in.EndedAt
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
