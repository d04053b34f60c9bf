package accounts

import (
	"context"
	"testing"
	"time"
)

func seededRepo() *MemoryRepo {
	base := time.Unix(1700000000, 0).UTC()
	return NewMemoryRepo(
		Owner{ID: "o2", Email: "second@example.com", IsActive: true, WebhookToken: "tok-2", CreatedAt: base.Add(time.Hour)},
		Owner{ID: "o1", Email: "first@example.com", IsActive: true, WebhookToken: "tok-1", CreatedAt: base},
		Owner{ID: "o3", Email: "gone@example.com", IsActive: false, WebhookToken: "tok-3", CreatedAt: base.Add(-time.Hour)},
	)
}

func TestDefaultOwner_PrefersConfiguredEmail(t *testing.T) {
	r := NewResolver(seededRepo(), "SECOND@example.com")
	o, ok, err := r.DefaultOwner(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected owner, got ok=%v err=%v", ok, err)
	}
	if o.ID != "o2" {
		t.Fatalf("expected o2, got %s", o.ID)
	}
}

func TestDefaultOwner_FallsBackToFirstActive(t *testing.T) {
	r := NewResolver(seededRepo(), "missing@example.com")
	o, ok, err := r.DefaultOwner(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected owner, got ok=%v err=%v", ok, err)
	}
	if o.ID != "o1" {
		t.Fatalf("expected earliest active owner o1, got %s", o.ID)
	}
}

func TestDefaultOwner_NoActiveOwners(t *testing.T) {
	r := NewResolver(NewMemoryRepo(), "")
	if _, ok, err := r.DefaultOwner(context.Background()); ok || err != nil {
		t.Fatalf("expected no owner, got ok=%v err=%v", ok, err)
	}
}

func TestByWebhookToken(t *testing.T) {
	r := NewResolver(seededRepo(), "")
	if o, ok, _ := r.ByWebhookToken(context.Background(), " tok-2 "); !ok || o.ID != "o2" {
		t.Fatalf("expected o2 by token, got %+v ok=%v", o, ok)
	}
	if _, ok, _ := r.ByWebhookToken(context.Background(), "tok-3"); ok {
		t.Fatalf("inactive owner must not resolve")
	}
	if _, ok, _ := r.ByWebhookToken(context.Background(), ""); ok {
		t.Fatalf("empty token must not resolve")
	}
}

func TestOwnerLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if got := (Owner{Timezone: "America/New_York"}).Location(nil); got.String() != ny.String() {
		t.Fatalf("expected New York, got %s", got)
	}
	if got := (Owner{Timezone: "bogus/zone"}).Location(ny); got != ny {
		t.Fatalf("expected default on invalid zone, got %s", got)
	}
	if got := (Owner{}).Location(nil); got != time.UTC {
		t.Fatalf("expected UTC, got %s", got)
	}
}
