package accounts

import (
	"context"
	"log/slog"
	"strings"

	"callflow-platform/pkg/logger"
)

// Resolver maps inbound webhook and stream requests to an owning account.
type Resolver struct {
	repo         Repository
	defaultEmail string
}

func NewResolver(repo Repository, defaultOwnerEmail string) *Resolver {
	return &Resolver{repo: repo, defaultEmail: strings.TrimSpace(defaultOwnerEmail)}
}

// DefaultOwner picks the owner for the untokenized webhook: the active owner
// with the configured email, else the earliest active owner.
func (r *Resolver) DefaultOwner(ctx context.Context) (Owner, bool, error) {
	if r.defaultEmail != "" {
		o, ok, err := r.repo.FindActiveByEmail(ctx, r.defaultEmail)
		if err != nil {
			return Owner{}, false, err
		}
		if ok {
			return o, true, nil
		}
		logger.From(ctx).Warn("default webhook owner not found, using first active owner",
			slog.String("email", r.defaultEmail))
	}
	return r.repo.FirstActive(ctx)
}

// ByWebhookToken resolves the token embedded in a per-account webhook URL.
func (r *Resolver) ByWebhookToken(ctx context.Context, token string) (Owner, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Owner{}, false, nil
	}
	return r.repo.FindActiveByWebhookToken(ctx, token)
}

// ActiveByID confirms that an authenticated owner still exists and is active.
func (r *Resolver) ActiveByID(ctx context.Context, id string) (Owner, bool, error) {
	if id == "" {
		return Owner{}, false, nil
	}
	return r.repo.FindActiveByID(ctx, id)
}
