package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"callflow-platform/internal/accounts"
	"callflow-platform/internal/alerts"
	"callflow-platform/internal/calls"
	"callflow-platform/internal/crm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOwner = accounts.Owner{ID: "owner-1", Email: "owner@example.com", IsActive: true}

type fixture struct {
	calls    *calls.MemoryRepo
	crm      *crm.MemoryRepo
	alerts   *alerts.MemoryRepo
	hub      *alerts.Hub
	ingestor *Ingestor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		calls:  calls.NewMemoryRepo(),
		crm:    crm.NewMemoryRepo(),
		alerts: alerts.NewMemoryRepo(),
		hub:    alerts.NewHub(8),
	}
	f.ingestor = NewIngestor(
		f.calls,
		crm.NewResolver(f.crm, time.UTC),
		alerts.NewEmitter(f.alerts, f.hub),
		nil,
	)
	return f
}

func (f *fixture) ingest(t *testing.T, raw string) Result {
	t.Helper()
	res, err := f.ingestor.Ingest(context.Background(), testOwner, []byte(raw))
	require.NoError(t, err)
	return res
}

func TestIngest_SameExternalIDTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	raw := `{"message": {"type": "end-of-call-report", "call": {"id": "call-1"}, "summary": "Leak under the sink"}}`

	first := f.ingest(t, raw)
	second := f.ingest(t, raw)

	assert.Equal(t, ActionCreated, first.Action)
	assert.Equal(t, ActionUpdated, second.Action)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.calls.Events(), 1)
}

func TestIngest_UpdateDoesNotClobberWithEmptyFields(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, `{"callId": "call-2", "transcript": "full transcript", "summary": "first", "callerName": "Ann", "price": 20}`)
	res := f.ingest(t, `{"callId": "call-2", "transcript": "", "summary": "second"}`)
	require.Equal(t, ActionUpdated, res.Action)

	events := f.calls.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "full transcript", ev.Transcript)
	assert.Equal(t, "second", ev.Summary)
	assert.Equal(t, "Ann", ev.CallerName)
	require.NotNil(t, ev.PriceMinor)
	assert.Equal(t, int64(2000), *ev.PriceMinor)
	assert.Equal(t, "USD", ev.Currency)
}

func TestIngest_EmptyPingsAreSkipped(t *testing.T) {
	f := newFixture(t)
	for _, raw := range []string{
		``,
		`{}`,
		`{"transcript": "", "summary": ""}`,
		`{"summary": "   ", "transcript": []}`,
		`{"message": {"type": "status-update", "status": "in-progress"}}`,
		`{"callerNumber": "+15550001111", "duration": 12}`,
	} {
		res := f.ingest(t, raw)
		assert.Equal(t, ActionSkipped, res.Action, "payload %q", raw)
		assert.Empty(t, res.ID)
	}
	assert.Empty(t, f.calls.Events())
	assert.Empty(t, f.alerts.Alerts())
	assert.Empty(t, f.crm.Customers())
}

func TestIngest_AlertOnlyOnCreate(t *testing.T) {
	f := newFixture(t)
	ch := f.hub.Register(testOwner.ID)
	defer f.hub.Unregister(testOwner.ID, ch)

	f.ingest(t, `{"callId": "call-3", "summary": "first pass"}`)
	f.ingest(t, `{"callId": "call-3", "summary": "second pass"}`)

	all := f.alerts.Alerts()
	require.Len(t, all, 1)
	assert.Equal(t, "New call", all[0].Title)
	assert.Equal(t, "first pass", all[0].Message)
	assert.Equal(t, alerts.TypeInfo, all[0].Type)

	select {
	case payload := <-ch:
		assert.Contains(t, string(payload), `"first pass"`)
	default:
		t.Fatal("expected a live notification")
	}
	select {
	case payload := <-ch:
		t.Fatalf("unexpected second notification %s", payload)
	default:
	}
}

func TestIngest_InfersMissingFieldsFromSummary(t *testing.T) {
	f := newFixture(t)
	res := f.ingest(t, `{"callId": "call-4", "summary": "Maria called Apex Plumbing to book a leak repair in sink."}`)
	require.Equal(t, ActionCreated, res.Action)

	ev := f.calls.Events()[0]
	assert.Equal(t, "Maria", ev.CallerName)
	assert.Equal(t, "leak repair in sink", ev.ServiceName)
	assert.Equal(t, "Booking created", ev.Outcome)

	// Resolution saw the inferred name and service.
	customers := f.crm.Customers()
	require.Len(t, customers, 1)
	assert.Equal(t, "Maria", customers[0].Name)
	require.Len(t, f.crm.Bookings(), 1)
	require.NotNil(t, ev.CustomerID)
	require.NotNil(t, ev.BookingID)
	assert.Equal(t, customers[0].ID, *ev.CustomerID)

	a := f.alerts.Alerts()[0]
	require.NotNil(t, a.RelatedClient)
	assert.Equal(t, customers[0].ID, *a.RelatedClient)
}

func TestIngest_SuppliedFieldsBeatInference(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, `{"callId": "call-5", "callerName": "Bob", "serviceName": "Boiler repair", "outcome": "Quoted", "summary": "Maria called Apex Plumbing to book a leak repair in sink."}`)

	ev := f.calls.Events()[0]
	assert.Equal(t, "Bob", ev.CallerName)
	assert.Equal(t, "Boiler repair", ev.ServiceName)
	assert.Equal(t, "Quoted", ev.Outcome)
}

func TestIngest_LinksExistingCustomerByPhone(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.crm.CreateCustomer(context.Background(), crm.Customer{
		ID: "cust-1", OwnerID: testOwner.ID, Name: "Maria", PhoneNumber: "(555) 123-4567",
	}))

	f.ingest(t, `{"callId": "call-6", "customer": {"number": "+15551234567"}, "summary": "Question about opening hours"}`)

	ev := f.calls.Events()[0]
	require.NotNil(t, ev.CustomerID)
	assert.Equal(t, "cust-1", *ev.CustomerID)
	assert.Len(t, f.crm.Customers(), 1)
}

func TestIngest_MalformedPayload(t *testing.T) {
	f := newFixture(t)
	_, err := f.ingestor.Ingest(context.Background(), testOwner, []byte(`{"callId": `))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Empty(t, f.calls.Events())
}

type failingResolver struct{}

func (failingResolver) Resolve(ctx context.Context, owner accounts.Owner, ev calls.CallEvent) (crm.Result, error) {
	return crm.Result{}, errors.New("crm unavailable")
}

type failingEmitter struct{ calls int }

func (e *failingEmitter) Emit(ctx context.Context, ev calls.CallEvent) (alerts.Alert, error) {
	e.calls++
	return alerts.Alert{}, errors.New("alerts unavailable")
}

func TestIngest_BestEffortFailuresDoNotFailIngestion(t *testing.T) {
	repo := calls.NewMemoryRepo()
	emitter := &failingEmitter{}
	ing := NewIngestor(repo, failingResolver{}, emitter, nil)

	res, err := ing.Ingest(context.Background(), testOwner, []byte(`{"callId": "call-7", "summary": "hello there, general question"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, res.Action)
	assert.Equal(t, 1, emitter.calls)

	ev := repo.Events()[0]
	assert.Nil(t, ev.CustomerID)
	assert.Nil(t, ev.BookingID)
}

// racyRepo hides the existing row from the first lookup, as if another
// request created it in between.
type racyRepo struct {
	*calls.MemoryRepo
	mu     sync.Mutex
	hidden bool
}

func (r *racyRepo) FindByExternalID(ctx context.Context, ownerID, externalCallID string) (calls.CallEvent, bool, error) {
	r.mu.Lock()
	hide := !r.hidden
	r.hidden = true
	r.mu.Unlock()
	if hide {
		return calls.CallEvent{}, false, nil
	}
	return r.MemoryRepo.FindByExternalID(ctx, ownerID, externalCallID)
}

func TestIngest_LostCreateRaceBecomesUpdate(t *testing.T) {
	base := calls.NewMemoryRepo()
	require.NoError(t, base.Create(context.Background(), calls.CallEvent{
		ID: "existing", OwnerID: testOwner.ID, ExternalCallID: "call-8", Summary: "winner",
	}))
	alertRepo := alerts.NewMemoryRepo()
	ing := NewIngestor(&racyRepo{MemoryRepo: base}, crm.NewResolver(crm.NewMemoryRepo(), nil), alerts.NewEmitter(alertRepo, nil), nil)

	res, err := ing.Ingest(context.Background(), testOwner, []byte(`{"callId": "call-8", "transcript": "late transcript"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, res.Action)
	assert.Equal(t, "existing", res.ID)

	events := base.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "winner", events[0].Summary)
	assert.Equal(t, "late transcript", events[0].Transcript)
	assert.Empty(t, alertRepo.Alerts())
}

type recordingLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
	err      error
}

func (l *recordingLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

func TestIngest_LocksPerOwnerAndExternalID(t *testing.T) {
	locker := &recordingLocker{}
	ing := NewIngestor(calls.NewMemoryRepo(), crm.NewResolver(crm.NewMemoryRepo(), nil), alerts.NewEmitter(alerts.NewMemoryRepo(), nil), locker)

	_, err := ing.Ingest(context.Background(), testOwner, []byte(`{"callId": "call-9", "summary": "s"}`))
	require.NoError(t, err)
	_, err = ing.Ingest(context.Background(), testOwner, []byte(`{"summary": "no id, no lock"}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"owner-1:call-9"}, locker.keys)
	assert.Equal(t, 1, locker.released)
}

func TestIngest_LockFailureFallsBackToUnlocked(t *testing.T) {
	locker := &recordingLocker{err: errors.New("redis down")}
	repo := calls.NewMemoryRepo()
	ing := NewIngestor(repo, crm.NewResolver(crm.NewMemoryRepo(), nil), alerts.NewEmitter(alerts.NewMemoryRepo(), nil), locker)

	res, err := ing.Ingest(context.Background(), testOwner, []byte(`{"callId": "call-10", "summary": "s"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, res.Action)
	assert.Len(t, repo.Events(), 1)
}

func TestIngest_ConcurrentDuplicatesProduceOneEvent(t *testing.T) {
	f := newFixture(t)
	raw := []byte(`{"callId": "call-11", "summary": "` + strings.Repeat("x", 40) + `"}`)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.ingestor.Ingest(context.Background(), testOwner, raw)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	created := 0
	for _, r := range results {
		if r.Action == ActionCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Len(t, f.calls.Events(), 1)
	assert.Len(t, f.alerts.Alerts(), 1)
}
