package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"callflow-platform/internal/calls"
	"callflow-platform/pkg/logger"
	"callflow-platform/pkg/utils"

	"github.com/google/uuid"
)

const (
	newCallTitle  = "New call"
	maxMessageLen = 500
	notifyTimeout = 2 * time.Second
	unknownCaller = "Unknown"
)

// Notifier delivers an encoded alert to live subscribers.
type Notifier interface {
	Publish(ctx context.Context, ownerID string, payload []byte) error
}

// Emitter persists the alert for a new call event and then notifies live
// subscribers. Notification failures are logged and never returned.
type Emitter struct {
	repo     Repository
	notifier Notifier
	clock    func() time.Time
}

func NewEmitter(repo Repository, notifier Notifier) *Emitter {
	return &Emitter{repo: repo, notifier: notifier, clock: time.Now}
}

var ErrOwnerRequired = errors.New("alerts: owner id is required")

func (e *Emitter) Emit(ctx context.Context, ev calls.CallEvent) (Alert, error) {
	if ev.OwnerID == "" {
		return Alert{}, ErrOwnerRequired
	}
	a := Alert{
		ID:             uuid.NewString(),
		OwnerID:        ev.OwnerID,
		Type:           TypeInfo,
		Title:          newCallTitle,
		Message:        CallMessage(ev),
		RelatedClient:  ev.CustomerID,
		RelatedBooking: ev.BookingID,
		CreatedAt:      e.clock().UTC(),
	}
	if err := e.repo.Create(ctx, a); err != nil {
		return Alert{}, fmt.Errorf("persist alert: %w", err)
	}
	e.notify(ctx, a)
	return a, nil
}

func (e *Emitter) notify(ctx context.Context, a Alert) {
	if e.notifier == nil {
		return
	}
	log := logger.From(ctx).With(slog.String("owner_id", a.OwnerID), slog.String("alert_id", a.ID))
	payload, err := a.Payload()
	if err != nil {
		log.Error("encode alert payload", slog.Any("err", err))
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := e.notifier.Publish(nctx, a.OwnerID, payload); err != nil {
		log.Warn("live alert notification failed", slog.Any("err", err))
	}
}

// CallMessage is the call summary, else "Call from <name|number|Unknown>",
// ellipsized to the alert message limit.
func CallMessage(ev calls.CallEvent) string {
	msg := strings.TrimSpace(ev.Summary)
	if msg == "" {
		who := unknownCaller
		if ev.CallerName != "" {
			who = ev.CallerName
		} else if ev.CallerNumber != "" {
			who = ev.CallerNumber
		}
		msg = "Call from " + who
	}
	return utils.Ellipsize(msg, maxMessageLen)
}
