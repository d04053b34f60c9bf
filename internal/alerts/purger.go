package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultRetention = 7 * 24 * time.Hour

// Purger deletes alerts past the retention window on a cron schedule.
type Purger struct {
	repo      Repository
	retention time.Duration
	log       *slog.Logger
	clock     func() time.Time
}

func NewPurger(repo Repository, retention time.Duration, log *slog.Logger) *Purger {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Purger{repo: repo, retention: retention, log: log, clock: time.Now}
}

func (p *Purger) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := p.clock().UTC().Add(-p.retention)
	return p.repo.DeleteOlderThan(ctx, cutoff)
}

// Run schedules PurgeOnce with spec and blocks until ctx is done. A run in
// progress is allowed to finish before Run returns.
func (p *Purger) Run(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { p.runOnce(ctx) }); err != nil {
		return err
	}
	c.Start()
	p.log.Info("alert purge scheduled", slog.String("schedule", spec), slog.Duration("retention", p.retention))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (p *Purger) runOnce(ctx context.Context) {
	n, err := p.PurgeOnce(ctx)
	if err != nil {
		p.log.Error("alert purge failed", slog.Any("err", err))
		return
	}
	if n > 0 {
		p.log.Info("alerts purged", slog.Int64("deleted", n))
	}
}
