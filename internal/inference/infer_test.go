package inference

import (
	"strings"
	"testing"
)

func TestInfer_CallerAndPurposePhrase(t *testing.T) {
	got := Infer("Maria called Apex Plumbing to book a leak repair in sink.")
	want := Result{CallerName: "Maria", ServiceName: "leak repair in sink", Outcome: OutcomeBookingCreated}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestInfer_BusinessNameNeverBecomesService(t *testing.T) {
	got := Infer("Maria called Apex Plumbing and Co.")
	if got.CallerName != "Maria" {
		t.Fatalf("expected caller Maria, got %q", got.CallerName)
	}
	if got.ServiceName != "" {
		t.Fatalf("expected no service, got %q", got.ServiceName)
	}
}

func TestInfer_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		if got := Infer(in); !got.IsZero() {
			t.Fatalf("Infer(%q) = %+v, want zero", in, got)
		}
	}
}

func TestInfer_OutcomePriority(t *testing.T) {
	cases := []struct {
		summary string
		want    string
	}{
		{"Customer rescheduled and booked a new slot", OutcomeRescheduled},
		{"The visit was scheduled for Monday", OutcomeBookingScheduled},
		{"Good news, the appointment is set", OutcomeBookingScheduled},
		{"Caller canceled the visit entirely", OutcomeCancelled},
		{"Caller cancelled but booked again later", OutcomeCancelled},
		{"Caller wants a booking next week", OutcomeBookingCreated},
		{"The customer rebooked the job for next Tuesday afternoon.", OutcomeBookingCreated},
		{"Caller asked about existing bookings for the weekend.", OutcomeBookingCreated},
		{"The visit was prescheduled by the office last week.", OutcomeBookingScheduled},
		{"Customer said the job was overbooked", OutcomeBookingCreated},
		{"Caller rescheduled the visit to Friday", OutcomeRescheduled},
		{"General enquiry about opening hours", OutcomeCompleted},
		{"hi there", ""},
	}
	for _, tc := range cases {
		if got := Infer(tc.summary).Outcome; got != tc.want {
			t.Fatalf("outcome for %q = %q, want %q", tc.summary, got, tc.want)
		}
	}
}

func TestInfer_ServiceExtraction(t *testing.T) {
	cases := []struct {
		summary string
		want    string
	}{
		{"Service: blocked drain, urgent", "blocked drain"},
		{"Ellen booked a tap repair, thanks", "tap repair"},
		{"Customer mentioned the water heater is broken", "water heater"},
		{"Requested: Smith Plumbing Services. Nothing else", ""},
		{"Sam needed a plumber for toilet repair.", "toilet repair"},
	}
	for _, tc := range cases {
		if got := Infer(tc.summary).ServiceName; got != tc.want {
			t.Fatalf("service for %q = %q, want %q", tc.summary, got, tc.want)
		}
	}
}

func TestInfer_Deterministic(t *testing.T) {
	in := "Zaim called Apex Plumbing to report a pipe leak. Appointment was scheduled."
	first := Infer(in)
	for i := 0; i < 10; i++ {
		if got := Infer(in); got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
	if first.CallerName != "Zaim" || first.ServiceName != "pipe leak" || first.Outcome != OutcomeBookingScheduled {
		t.Fatalf("unexpected result %+v", first)
	}
}

func TestLooksLikeBusinessName(t *testing.T) {
	business := []string{
		"Apex Plumbing",
		"Acme LLC",
		"Bob's Services",
		"Smith & Sons",
		"Smith and Jones Co",
		"Widget Inc",
		"",
		strings.Repeat("x", 121),
	}
	for _, s := range business {
		if !LooksLikeBusinessName(s) {
			t.Fatalf("expected %q to look like a business name", s)
		}
	}
	services := []string{"leak repair in sink", "blocked drain", "tap repair"}
	for _, s := range services {
		if LooksLikeBusinessName(s) {
			t.Fatalf("expected %q to look like a service", s)
		}
	}
}
