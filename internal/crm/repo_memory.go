package crm

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory CRM store for tests.
type MemoryRepo struct {
	mu        sync.Mutex
	customers []Customer
	bookings  []Booking
	services  []Service
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCustomers(ctx context.Context, ownerID string) ([]Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Customer
	for _, c := range r.customers {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) CreateCustomer(ctx context.Context, c Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers = append(r.customers, c)
	return nil
}

func (r *MemoryRepo) LatestBookingCreatedBetween(ctx context.Context, ownerID, clientID string, from, to time.Time) (Booking, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		best  Booking
		found bool
	)
	for _, b := range r.bookings {
		if b.OwnerID != ownerID || b.ClientID != clientID {
			continue
		}
		if b.CreatedAt.Before(from) || b.CreatedAt.After(to) {
			continue
		}
		if !found || b.CreatedAt.After(best.CreatedAt) {
			best, found = b, true
		}
	}
	return best, found, nil
}

func (r *MemoryRepo) CreateBooking(ctx context.Context, b Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = append(r.bookings, b)
	return nil
}

func (r *MemoryRepo) ActiveServiceByName(ctx context.Context, ownerID, name string) (Service, bool, error) {
	return r.firstService(func(s Service) bool {
		return s.OwnerID == ownerID && s.IsActive && strings.EqualFold(s.Name, name)
	})
}

func (r *MemoryRepo) FirstActiveService(ctx context.Context, ownerID string) (Service, bool, error) {
	return r.firstService(func(s Service) bool { return s.OwnerID == ownerID && s.IsActive })
}

func (r *MemoryRepo) firstService(match func(Service) bool) (Service, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.services {
		if match(s) {
			return s, true, nil
		}
	}
	return Service{}, false, nil
}

// PutService seeds a service; services keep insertion order.
func (r *MemoryRepo) PutService(s Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = append(r.services, s)
}

func (r *MemoryRepo) Customers() []Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Customer, len(r.customers))
	copy(out, r.customers)
	return out
}

func (r *MemoryRepo) Bookings() []Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Booking, len(r.bookings))
	copy(out, r.bookings)
	return out
}
