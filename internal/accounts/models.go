package accounts

import (
	"strings"
	"time"
)

// Owner is the business account that owns call events, customers, bookings
// and alerts. Account management itself lives outside this service; this is
// the read-only projection the webhook and stream paths need.
type Owner struct {
	ID       string `json:"id" db:"id"`
	Email    string `json:"email" db:"email"`
	IsActive bool   `json:"is_active" db:"is_active"`

	// WebhookToken is the opaque per-account token embedded in the voice
	// platform's webhook URL.
	WebhookToken string `json:"-" db:"webhook_token"`

	// Timezone is an IANA zone name; empty means the configured default.
	Timezone string `json:"timezone,omitempty" db:"timezone"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Location resolves the owner's timezone, falling back to def and then UTC.
func (o Owner) Location(def *time.Location) *time.Location {
	if tz := strings.TrimSpace(o.Timezone); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	if def != nil {
		return def
	}
	return time.UTC
}
