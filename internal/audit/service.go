package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records webhook deliveries for operators.
//
// IMPORTANT:
// - Audit is internal-only. It is not exposed through the owner-facing API.
// - Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

const tokenPrefixLen = 8

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" || e.Outcome == "" {
		return ErrInvalidEvent
	}
	if e.Type == EventTypeWebhookProcessed && e.OwnerID == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	e.TokenPrefix = TokenPrefix(e.TokenPrefix)
	return s.repo.Append(ctx, e)
}

// LogProcessed records a delivery that reached the ingestor.
func (s *Service) LogProcessed(ctx context.Context, ownerID, route, token, ip, externalCallID, callEventID, action string) error {
	return s.Append(ctx, Event{
		Type:           EventTypeWebhookProcessed,
		OwnerID:        ownerID,
		Route:          route,
		TokenPrefix:    token,
		IPAddress:      ip,
		ExternalCallID: externalCallID,
		CallEventID:    callEventID,
		Outcome:        action,
	})
}

// LogRejected records a delivery that could not be routed to an owner.
func (s *Service) LogRejected(ctx context.Context, route, token, ip, reason string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeWebhookRejected,
		Route:       route,
		TokenPrefix: token,
		IPAddress:   ip,
		Outcome:     reason,
	})
}

// TokenPrefix keeps the first 8 characters of a webhook token for logs.
func TokenPrefix(token string) string {
	if len(token) <= tokenPrefixLen {
		return token
	}
	return token[:tokenPrefixLen]
}
