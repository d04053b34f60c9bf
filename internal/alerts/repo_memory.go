package alerts

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory alert store for tests.
type MemoryRepo struct {
	mu     sync.Mutex
	alerts []Alert
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Create(ctx context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, ownerID string, f ListFilter) ([]Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Alert
	for _, a := range r.alerts {
		if a.OwnerID != ownerID || a.CreatedAt.Before(f.Since) {
			continue
		}
		if f.IsRead != nil && a.IsRead != *f.IsRead {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) UnreadCount(ctx context.Context, ownerID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.alerts {
		if a.OwnerID == ownerID && !a.IsRead && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) MarkRead(ctx context.Context, ownerID, id string, at time.Time) (Alert, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.alerts {
		a := &r.alerts[i]
		if a.OwnerID != ownerID || a.ID != id {
			continue
		}
		a.IsRead = true
		if a.ReadAt == nil {
			t := at
			a.ReadAt = &t
		}
		return *a, true, nil
	}
	return Alert{}, false, nil
}

func (r *MemoryRepo) MarkAllRead(ctx context.Context, ownerID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.alerts {
		a := &r.alerts[i]
		if a.OwnerID == ownerID && !a.IsRead {
			t := at
			a.IsRead, a.ReadAt = true, &t
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) DeleteSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	return r.deleteWhere(func(a Alert) bool {
		return a.OwnerID == ownerID && !a.CreatedAt.Before(since)
	}), nil
}

func (r *MemoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deleteWhere(func(a Alert) bool { return a.CreatedAt.Before(cutoff) }), nil
}

func (r *MemoryRepo) deleteWhere(match func(Alert) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.alerts[:0]
	var n int64
	for _, a := range r.alerts {
		if match(a) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.alerts = kept
	return n
}

func (r *MemoryRepo) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}
