package crm

import (
	"context"
	"strings"
	"testing"
	"time"

	"callflow-platform/internal/accounts"
	"callflow-platform/internal/calls"
)

var owner = accounts.Owner{ID: "owner-1", Email: "o@example.com", IsActive: true}

func fixedResolver(repo Repository, now time.Time) *Resolver {
	r := NewResolver(repo, time.UTC)
	r.clock = func() time.Time { return now }
	return r
}

func timePtr(t time.Time) *time.Time { return &t }

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+1 (555) 123-4567":   "+15551234567",
		"(555) 123-4567":      "5551234567",
		"555.123.4567 ext 89": "555123456789",
		"  +44 20 7946 0958 ": "+442079460958",
		"+":                   "",
		"n/a":                 "",
		"":                    "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchCustomer_Bidirectional(t *testing.T) {
	stored := []Customer{{ID: "c1", PhoneNumber: "(555) 123-4567"}}
	if c, ok := MatchCustomer(stored, NormalizePhone("+15551234567")); !ok || c.ID != "c1" {
		t.Fatalf("expected caller with country code to match stored local number")
	}

	stored = []Customer{{ID: "c2", PhoneNumber: "+15551234567"}}
	if c, ok := MatchCustomer(stored, NormalizePhone("(555) 123-4567")); !ok || c.ID != "c2" {
		t.Fatalf("expected local caller number to match stored international number")
	}
}

func TestMatchCustomer_FirstMatchWinsAndSkipsBlankNumbers(t *testing.T) {
	stored := []Customer{
		{ID: "blank", PhoneNumber: ""},
		{ID: "first", PhoneNumber: "555-123-4567"},
		{ID: "second", PhoneNumber: "+1 555 123 4567"},
	}
	c, ok := MatchCustomer(stored, "5551234567")
	if !ok || c.ID != "first" {
		t.Fatalf("expected first match, got %+v ok=%v", c, ok)
	}
	if _, ok := MatchCustomer(stored, ""); ok {
		t.Fatalf("empty caller must not match")
	}
}

func TestResolve_ExistingCustomerAndBookingInWindow(t *testing.T) {
	repo := NewMemoryRepo()
	ended := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	_ = repo.CreateCustomer(context.Background(), Customer{ID: "c1", OwnerID: owner.ID, PhoneNumber: "(555) 123-4567", CreatedAt: ended.Add(-48 * time.Hour)})
	_ = repo.CreateBooking(context.Background(), Booking{ID: "too-old", OwnerID: owner.ID, ClientID: "c1", CreatedAt: ended.Add(-16 * time.Minute)})
	_ = repo.CreateBooking(context.Background(), Booking{ID: "early", OwnerID: owner.ID, ClientID: "c1", CreatedAt: ended.Add(-10 * time.Minute)})
	_ = repo.CreateBooking(context.Background(), Booking{ID: "latest", OwnerID: owner.ID, ClientID: "c1", CreatedAt: ended.Add(2 * time.Minute)})
	_ = repo.CreateBooking(context.Background(), Booking{ID: "too-late", OwnerID: owner.ID, ClientID: "c1", CreatedAt: ended.Add(3 * time.Minute)})

	r := fixedResolver(repo, ended.Add(time.Hour))
	res, err := r.Resolve(context.Background(), owner, calls.CallEvent{
		OwnerID:      owner.ID,
		CallerNumber: "+15551234567",
		ServiceName:  "leak repair",
		EndedAt:      timePtr(ended),
		CreatedAt:    ended.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.CustomerID != "c1" || res.BookingID != "latest" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(repo.Customers()) != 1 {
		t.Fatalf("expected no new customer")
	}
	if len(repo.Bookings()) != 4 {
		t.Fatalf("expected no placeholder booking")
	}
}

func TestResolve_CreatesCustomerAndPlaceholderBooking(t *testing.T) {
	repo := NewMemoryRepo()
	repo.PutService(Service{ID: "s-other", OwnerID: owner.ID, Name: "Drain cleaning", IsActive: true})
	repo.PutService(Service{ID: "s-leak", OwnerID: owner.ID, Name: "Leak Repair", IsActive: true})

	created := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC)
	summary := strings.Repeat("s", 600)
	r := fixedResolver(repo, created)
	res, err := r.Resolve(context.Background(), owner, calls.CallEvent{
		OwnerID:      owner.ID,
		CallerNumber: "555 000 1111",
		ServiceName:  "leak repair",
		Summary:      summary,
		CreatedAt:    created,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	customers := repo.Customers()
	if len(customers) != 1 || customers[0].Name != "Caller" || customers[0].PhoneNumber != "555 000 1111" {
		t.Fatalf("unexpected customers %+v", customers)
	}
	if res.CustomerID != customers[0].ID {
		t.Fatalf("expected link to new customer")
	}

	bookings := repo.Bookings()
	if len(bookings) != 1 {
		t.Fatalf("expected one placeholder booking, got %d", len(bookings))
	}
	b := bookings[0]
	if res.BookingID != b.ID {
		t.Fatalf("expected link to placeholder booking")
	}
	if b.Status != BookingStatusPending {
		t.Fatalf("expected pending, got %s", b.Status)
	}
	wantStart := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	if !b.StartsAt.Equal(wantStart) || !b.EndsAt.Equal(wantStart.Add(time.Hour)) {
		t.Fatalf("unexpected slot %s - %s", b.StartsAt, b.EndsAt)
	}
	if b.ServiceID == nil || *b.ServiceID != "s-leak" {
		t.Fatalf("expected name-matched service, got %v", b.ServiceID)
	}
	if b.Notes != "From voice call: "+strings.Repeat("s", 500) {
		t.Fatalf("expected notes with summary cut to 500 chars, got %d chars", len(b.Notes))
	}
}

func TestResolve_PlaceholderUsesOwnerTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	repo := NewMemoryRepo()
	// 02:00 UTC on the 10th is still the 9th in New York.
	ended := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	r := fixedResolver(repo, ended)
	nyOwner := owner
	nyOwner.Timezone = "America/New_York"

	if _, err := r.Resolve(context.Background(), nyOwner, calls.CallEvent{
		OwnerID:     owner.ID,
		CallerName:  "Maria",
		ServiceName: "tap repair",
		EndedAt:     timePtr(ended),
	}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	b := repo.Bookings()[0]
	want := time.Date(2026, 3, 10, 9, 0, 0, 0, ny)
	if !b.StartsAt.Equal(want) {
		t.Fatalf("expected %s, got %s", want, b.StartsAt.In(ny))
	}
}

func TestResolve_ServiceFallbacks(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	repo := NewMemoryRepo()
	repo.PutService(Service{ID: "inactive", OwnerID: owner.ID, Name: "Tap repair", IsActive: false})
	repo.PutService(Service{ID: "first-active", OwnerID: owner.ID, Name: "General", IsActive: true})
	if _, err := fixedResolver(repo, now).Resolve(context.Background(), owner, calls.CallEvent{
		CallerName: "Ann", ServiceName: "tap repair", CreatedAt: now,
	}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sid := repo.Bookings()[0].ServiceID; sid == nil || *sid != "first-active" {
		t.Fatalf("expected first active service fallback, got %v", sid)
	}

	empty := NewMemoryRepo()
	if _, err := fixedResolver(empty, now).Resolve(context.Background(), owner, calls.CallEvent{
		CallerName: "Ann", ServiceName: "tap repair", CreatedAt: now,
	}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sid := empty.Bookings()[0].ServiceID; sid != nil {
		t.Fatalf("expected no service, got %v", *sid)
	}
}

func TestResolve_NoCallerIdentityLinksNothing(t *testing.T) {
	repo := NewMemoryRepo()
	res, err := fixedResolver(repo, time.Now()).Resolve(context.Background(), owner, calls.CallEvent{
		ServiceName: "tap repair",
		Summary:     "someone called",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res != (Result{}) {
		t.Fatalf("expected no links, got %+v", res)
	}
	if len(repo.Customers()) != 0 || len(repo.Bookings()) != 0 {
		t.Fatalf("expected no writes")
	}
}

func TestResolve_NoServiceMeansNoPlaceholder(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	res, err := fixedResolver(repo, now).Resolve(context.Background(), owner, calls.CallEvent{
		CallerName: "Ann",
		CreatedAt:  now,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.CustomerID == "" || res.BookingID != "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestResolve_KeepsPreviouslyLinkedBooking(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	prior := "booking-from-first-webhook"
	res, err := fixedResolver(repo, now).Resolve(context.Background(), owner, calls.CallEvent{
		CallerName:  "Ann",
		ServiceName: "tap repair",
		CreatedAt:   now.Add(-time.Hour),
		BookingID:   &prior,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.BookingID != prior {
		t.Fatalf("expected prior booking kept, got %q", res.BookingID)
	}
	if len(repo.Bookings()) != 0 {
		t.Fatalf("expected no placeholder booking")
	}
}
