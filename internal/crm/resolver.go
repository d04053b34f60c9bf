package crm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"callflow-platform/internal/accounts"
	"callflow-platform/internal/calls"
	"callflow-platform/pkg/utils"

	"github.com/google/uuid"
)

const (
	bookingLookbehind   = 15 * time.Minute
	bookingLookahead    = 2 * time.Minute
	placeholderHour     = 9
	placeholderDuration = time.Hour
	maxNotesSummary     = 500
	defaultCallerName   = "Caller"
	notesPrefix         = "From voice call: "
)

// Result carries the links found or created for a call event.
// Empty strings mean "no link".
type Result struct {
	CustomerID string
	BookingID  string
}

// Resolver finds or creates the customer and booking a call belongs to.
//
// Matching is heuristic: a false merge is an accepted outcome, not a bug.
type Resolver struct {
	repo Repository
	// defaultLoc applies to owners without a usable timezone.
	defaultLoc *time.Location
	clock      func() time.Time
}

func NewResolver(repo Repository, defaultLoc *time.Location) *Resolver {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Resolver{repo: repo, defaultLoc: defaultLoc, clock: time.Now}
}

// Resolve links ev to a customer and, when possible, a booking.
//
// It never panics. On error the links resolved so far are returned together
// with the error; the caller decides whether to keep them.
func (r *Resolver) Resolve(ctx context.Context, owner accounts.Owner, ev calls.CallEvent) (Result, error) {
	var out Result

	customer, ok, err := r.resolveCustomer(ctx, owner.ID, ev)
	if err != nil || !ok {
		return out, err
	}
	out.CustomerID = customer.ID

	callTime := ev.CallTime()
	if !callTime.IsZero() {
		b, found, err := r.repo.LatestBookingCreatedBetween(ctx, owner.ID, customer.ID,
			callTime.Add(-bookingLookbehind), callTime.Add(bookingLookahead))
		if err != nil {
			return out, fmt.Errorf("find booking: %w", err)
		}
		if found {
			out.BookingID = b.ID
			return out, nil
		}
	}

	// A booking linked by an earlier webhook for the same call is kept rather
	// than adding another placeholder.
	if ev.BookingID != nil && *ev.BookingID != "" {
		out.BookingID = *ev.BookingID
		return out, nil
	}
	if strings.TrimSpace(ev.ServiceName) == "" {
		return out, nil
	}
	b, err := r.createPlaceholderBooking(ctx, owner, customer.ID, ev, callTime)
	if err != nil {
		return out, err
	}
	out.BookingID = b.ID
	return out, nil
}

func (r *Resolver) resolveCustomer(ctx context.Context, ownerID string, ev calls.CallEvent) (Customer, bool, error) {
	if caller := NormalizePhone(ev.CallerNumber); caller != "" {
		customers, err := r.repo.ListCustomers(ctx, ownerID)
		if err != nil {
			return Customer{}, false, fmt.Errorf("list customers: %w", err)
		}
		if c, ok := MatchCustomer(customers, caller); ok {
			return c, true, nil
		}
	}

	name := strings.TrimSpace(ev.CallerName)
	if name == "" && strings.TrimSpace(ev.CallerNumber) == "" {
		return Customer{}, false, nil
	}
	if name == "" {
		name = defaultCallerName
	}
	c := Customer{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		PhoneNumber: ev.CallerNumber,
		CreatedAt:   r.clock().UTC(),
	}
	if err := r.repo.CreateCustomer(ctx, c); err != nil {
		return Customer{}, false, err
	}
	return c, true, nil
}

func (r *Resolver) createPlaceholderBooking(ctx context.Context, owner accounts.Owner, customerID string, ev calls.CallEvent, callTime time.Time) (Booking, error) {
	serviceID, err := r.pickService(ctx, owner.ID, ev.ServiceName)
	if err != nil {
		return Booking{}, err
	}

	base := callTime
	if base.IsZero() {
		base = r.clock()
	}
	start := NextDayAt(base, owner.Location(r.defaultLoc), placeholderHour)

	b := Booking{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		ClientID:  customerID,
		ServiceID: serviceID,
		StartsAt:  start.UTC(),
		EndsAt:    start.Add(placeholderDuration).UTC(),
		Status:    BookingStatusPending,
		Notes:     notesPrefix + utils.TruncateRunes(ev.Summary, maxNotesSummary),
		CreatedAt: r.clock().UTC(),
	}
	if err := r.repo.CreateBooking(ctx, b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

// pickService prefers an exact (case-insensitive) name match, then the
// owner's first active service, then none.
func (r *Resolver) pickService(ctx context.Context, ownerID, name string) (*string, error) {
	s, ok, err := r.repo.ActiveServiceByName(ctx, ownerID, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	if !ok {
		s, ok, err = r.repo.FirstActiveService(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("find service: %w", err)
		}
	}
	if !ok {
		return nil, nil
	}
	id := s.ID
	return &id, nil
}

// NextDayAt returns hour:00 on the calendar day after t, in loc.
func NextDayAt(t time.Time, loc *time.Location, hour int) time.Time {
	d := t.In(loc).AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
}
