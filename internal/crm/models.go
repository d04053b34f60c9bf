package crm

import "time"

// Customer is a client record of an owner. The voice channel only ever
// supplies a display name and a phone number, so that is all the resolver
// reads or writes.
type Customer struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Service struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID        string  `json:"id" db:"id"`
	OwnerID   string  `json:"owner_id" db:"owner_id"`
	ClientID  string  `json:"client_id" db:"client_id"`
	ServiceID *string `json:"service_id,omitempty" db:"service_id"`

	StartsAt time.Time     `json:"starts_at" db:"starts_at"`
	EndsAt   time.Time     `json:"ends_at" db:"ends_at"`
	Status   BookingStatus `json:"status" db:"status"`
	Notes    string        `json:"notes" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
