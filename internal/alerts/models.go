package alerts

import (
	"encoding/json"
	"time"
)

type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

func (t Type) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return true
	default:
		return false
	}
}

// Alert is a single notification for an owner.
// It is created once per new call event and mutated only by read-state
// changes. Rows expire through the retention purge.
type Alert struct {
	ID      string `json:"id" db:"id"`
	OwnerID string `json:"owner_id" db:"owner_id"`

	Type    Type   `json:"type" db:"type"`
	Title   string `json:"title" db:"title"`
	Message string `json:"message" db:"message"`

	RelatedClient  *string `json:"related_client" db:"related_client_id"`
	RelatedBooking *string `json:"related_booking" db:"related_booking_id"`

	IsRead bool       `json:"is_read" db:"is_read"`
	ReadAt *time.Time `json:"read_at" db:"read_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Payload is the wire encoding pushed to live subscribers.
func (a Alert) Payload() ([]byte, error) {
	return json.Marshal(a)
}

// ListFilter narrows List. Zero values mean "any".
type ListFilter struct {
	Since  time.Time
	IsRead *bool
	Type   Type
	Limit  int
}
