package accounts

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory owner store for tests.
type MemoryRepo struct {
	mu     sync.Mutex
	owners []Owner
}

func NewMemoryRepo(owners ...Owner) *MemoryRepo {
	r := &MemoryRepo{}
	for _, o := range owners {
		r.Put(o)
	}
	return r
}

func (r *MemoryRepo) Put(o Owner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.owners {
		if r.owners[i].ID == o.ID {
			r.owners[i] = o
			return
		}
	}
	r.owners = append(r.owners, o)
	sort.SliceStable(r.owners, func(i, j int) bool {
		return r.owners[i].CreatedAt.Before(r.owners[j].CreatedAt)
	})
}

func (r *MemoryRepo) FindActiveByEmail(ctx context.Context, email string) (Owner, bool, error) {
	return r.find(func(o Owner) bool { return strings.EqualFold(o.Email, email) })
}

func (r *MemoryRepo) FirstActive(ctx context.Context) (Owner, bool, error) {
	return r.find(func(Owner) bool { return true })
}

func (r *MemoryRepo) FindActiveByWebhookToken(ctx context.Context, token string) (Owner, bool, error) {
	return r.find(func(o Owner) bool { return o.WebhookToken != "" && o.WebhookToken == token })
}

func (r *MemoryRepo) FindActiveByID(ctx context.Context, id string) (Owner, bool, error) {
	return r.find(func(o Owner) bool { return o.ID == id })
}

func (r *MemoryRepo) find(match func(Owner) bool) (Owner, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.owners {
		if o.IsActive && match(o) {
			return o, true, nil
		}
	}
	return Owner{}, false, nil
}
