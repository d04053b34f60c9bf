package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory call event store useful for tests.
// It enforces the same (owner, external id) uniqueness as the database.
type MemoryRepo struct {
	mu     sync.Mutex
	events []CallEvent
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) FindByExternalID(ctx context.Context, ownerID, externalCallID string) (CallEvent, bool, error) {
	if externalCallID == "" {
		return CallEvent{}, false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.OwnerID == ownerID && e.ExternalCallID == externalCallID {
			return e, true, nil
		}
	}
	return CallEvent{}, false, nil
}

func (r *MemoryRepo) Create(ctx context.Context, e CallEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ExternalCallID != "" {
		for _, existing := range r.events {
			if existing.OwnerID == e.OwnerID && existing.ExternalCallID == e.ExternalCallID {
				return ErrDuplicate
			}
		}
	}
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, e CallEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].OwnerID == e.OwnerID && r.events[i].ID == e.ID {
			// Links are written only through SetLinks.
			e.CustomerID = r.events[i].CustomerID
			e.BookingID = r.events[i].BookingID
			r.events[i] = e
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) SetLinks(ctx context.Context, ownerID, id string, customerID, bookingID *string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].OwnerID == ownerID && r.events[i].ID == id {
			r.events[i].CustomerID = customerID
			r.events[i].BookingID = bookingID
			r.events[i].UpdatedAt = at
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) Events() []CallEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallEvent, len(r.events))
	copy(out, r.events)
	return out
}
