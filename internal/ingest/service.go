package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"callflow-platform/internal/accounts"
	"callflow-platform/internal/alerts"
	"callflow-platform/internal/calls"
	"callflow-platform/internal/crm"
	"callflow-platform/internal/inference"
	"callflow-platform/pkg/logger"

	"github.com/google/uuid"
)

const defaultCurrency = "USD"

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

type Result struct {
	Action Action `json:"action"`
	// ID is the call event id; empty when skipped.
	ID string `json:"id,omitempty"`

	ExternalCallID string `json:"-"`
}

// EntityResolver links a call event to CRM records.
type EntityResolver interface {
	Resolve(ctx context.Context, owner accounts.Owner, ev calls.CallEvent) (crm.Result, error)
}

// AlertEmitter raises the "new call" alert.
type AlertEmitter interface {
	Emit(ctx context.Context, ev calls.CallEvent) (alerts.Alert, error)
}

// Ingestor reconciles webhooks into call events.
//
// Idempotency invariant: one call event per (owner, non-empty external id);
// later webhooks merge into it and never raise another alert.
// Resolution and alerting are best-effort: their failures are logged and the
// ingestion still succeeds.
type Ingestor struct {
	calls    calls.Repository
	resolver EntityResolver
	emitter  AlertEmitter
	// locker is optional; without it the unique index is the only guard
	// against concurrent creates.
	locker Locker
	clock  func() time.Time
}

func NewIngestor(repo calls.Repository, resolver EntityResolver, emitter AlertEmitter, locker Locker) *Ingestor {
	return &Ingestor{calls: repo, resolver: resolver, emitter: emitter, locker: locker, clock: time.Now}
}

// Ingest parses raw and upserts it for owner. Only ErrMalformedPayload and
// storage errors are returned.
func (s *Ingestor) Ingest(ctx context.Context, owner accounts.Owner, raw []byte) (Result, error) {
	ev, err := ParsePayload(raw)
	if err != nil {
		return Result{}, err
	}
	return s.IngestEvent(ctx, owner, ev)
}

func (s *Ingestor) IngestEvent(ctx context.Context, owner accounts.Owner, ev Event) (Result, error) {
	log := logger.From(ctx).With(slog.String("owner_id", owner.ID))
	if ev.ExternalCallID != "" {
		log = log.With(slog.String("external_call_id", ev.ExternalCallID))
	}
	ctx = logger.With(ctx, log)

	if ev.ExternalCallID != "" && s.locker != nil {
		release, err := s.locker.Lock(ctx, owner.ID+":"+ev.ExternalCallID)
		if err != nil {
			log.Warn("ingest lock unavailable, continuing unlocked", slog.Any("err", err))
		} else {
			defer release()
		}
	}

	if ev.ExternalCallID != "" {
		existing, ok, err := s.calls.FindByExternalID(ctx, owner.ID, ev.ExternalCallID)
		if err != nil {
			return Result{}, fmt.Errorf("find call event: %w", err)
		}
		if ok {
			return s.update(ctx, owner, existing, ev)
		}
	}

	if ev.IsEmpty() {
		log.Info("webhook skipped: no call id and no content")
		return Result{Action: ActionSkipped}, nil
	}

	now := s.clock().UTC()
	rec := ev.CallEvent()
	rec.ID = uuid.NewString()
	rec.OwnerID = owner.ID
	if rec.Currency == "" {
		rec.Currency = defaultCurrency
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	fillInferred(&rec)

	if err := s.calls.Create(ctx, rec); err != nil {
		if !errors.Is(err, calls.ErrDuplicate) {
			return Result{}, err
		}
		// Lost a create race for the same external id; the winner's row
		// absorbs this webhook as an update.
		existing, ok, ferr := s.calls.FindByExternalID(ctx, owner.ID, ev.ExternalCallID)
		if ferr != nil {
			return Result{}, fmt.Errorf("find call event: %w", ferr)
		}
		if !ok {
			return Result{}, err
		}
		return s.update(ctx, owner, existing, ev)
	}

	s.link(ctx, owner, &rec)
	if _, err := s.emitter.Emit(ctx, rec); err != nil {
		log.Error("alert emission failed", slog.String("call_event_id", rec.ID), slog.Any("err", err))
	}
	log.Info("call event created", slog.String("call_event_id", rec.ID))
	return Result{Action: ActionCreated, ID: rec.ID, ExternalCallID: rec.ExternalCallID}, nil
}

func (s *Ingestor) update(ctx context.Context, owner accounts.Owner, rec calls.CallEvent, ev Event) (Result, error) {
	rec.Merge(ev.CallEvent())
	fillInferred(&rec)
	rec.UpdatedAt = s.clock().UTC()
	if err := s.calls.Update(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("update call event: %w", err)
	}
	s.link(ctx, owner, &rec)
	logger.From(ctx).Info("call event updated", slog.String("call_event_id", rec.ID))
	return Result{Action: ActionUpdated, ID: rec.ID, ExternalCallID: rec.ExternalCallID}, nil
}

// link runs entity resolution and stores whatever links it produced. Errors
// are logged and discarded.
func (s *Ingestor) link(ctx context.Context, owner accounts.Owner, rec *calls.CallEvent) {
	log := logger.From(ctx).With(slog.String("call_event_id", rec.ID))

	res, err := s.resolver.Resolve(ctx, owner, *rec)
	if err != nil {
		log.Warn("entity resolution failed", slog.Any("err", err))
	}

	changed := false
	if res.CustomerID != "" && !sameID(rec.CustomerID, res.CustomerID) {
		id := res.CustomerID
		rec.CustomerID, changed = &id, true
	}
	if res.BookingID != "" && !sameID(rec.BookingID, res.BookingID) {
		id := res.BookingID
		rec.BookingID, changed = &id, true
	}
	if !changed {
		return
	}
	if err := s.calls.SetLinks(ctx, owner.ID, rec.ID, rec.CustomerID, rec.BookingID, s.clock().UTC()); err != nil {
		log.Warn("storing call event links failed", slog.Any("err", err))
	}
}

// fillInferred completes caller name, service and outcome from the summary
// when the webhook left them blank. Supplied values always win.
func fillInferred(rec *calls.CallEvent) {
	if rec.Summary == "" || (rec.CallerName != "" && rec.ServiceName != "" && rec.Outcome != "") {
		return
	}
	guess := inference.Infer(rec.Summary)
	if rec.CallerName == "" {
		rec.CallerName = guess.CallerName
	}
	if rec.ServiceName == "" {
		rec.ServiceName = guess.ServiceName
	}
	if rec.Outcome == "" {
		rec.Outcome = guess.Outcome
	}
}

func sameID(p *string, id string) bool {
	return p != nil && *p == id
}
