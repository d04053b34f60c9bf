package alerts

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("alert not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

const maxListLimit = 200

// Service is the read-state API over an owner's recent alerts. Only alerts
// inside the retention window are visible.
type Service struct {
	repo   Repository
	window time.Duration
	clock  func() time.Time
}

func NewService(repo Repository, window time.Duration) *Service {
	if window <= 0 {
		window = DefaultRetention
	}
	return &Service{repo: repo, window: window, clock: time.Now}
}

func (s *Service) since() time.Time { return s.clock().UTC().Add(-s.window) }

func (s *Service) List(ctx context.Context, ownerID string, f ListFilter) ([]Alert, error) {
	if ownerID == "" {
		return nil, ErrInvalidArgument
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, ErrInvalidArgument
	}
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	f.Since = s.since()
	out, err := s.repo.List(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Alert{}
	}
	return out, nil
}

func (s *Service) UnreadCount(ctx context.Context, ownerID string) (int, error) {
	if ownerID == "" {
		return 0, ErrInvalidArgument
	}
	return s.repo.UnreadCount(ctx, ownerID, s.since())
}

func (s *Service) MarkRead(ctx context.Context, ownerID, id string) (Alert, error) {
	if ownerID == "" || id == "" {
		return Alert{}, ErrInvalidArgument
	}
	a, ok, err := s.repo.MarkRead(ctx, ownerID, id, s.clock().UTC())
	if err != nil {
		return Alert{}, err
	}
	if !ok {
		return Alert{}, ErrNotFound
	}
	return a, nil
}

func (s *Service) MarkAllRead(ctx context.Context, ownerID string) (int64, error) {
	if ownerID == "" {
		return 0, ErrInvalidArgument
	}
	return s.repo.MarkAllRead(ctx, ownerID, s.clock().UTC())
}

// ClearAll deletes the owner's visible alerts.
func (s *Service) ClearAll(ctx context.Context, ownerID string) (int64, error) {
	if ownerID == "" {
		return 0, ErrInvalidArgument
	}
	return s.repo.DeleteSince(ctx, ownerID, s.since())
}
