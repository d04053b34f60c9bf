package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"callflow-platform/internal/accounts"
	"callflow-platform/internal/alerts"
	"callflow-platform/internal/audit"
	"callflow-platform/internal/auth"
	"callflow-platform/internal/ingest"
	"callflow-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Owners   OwnerResolver
	Ingestor *ingest.Ingestor
	Alerts   *alerts.Service
	Tokens   StreamTokenIssuer
	// Audit is optional.
	Audit *audit.Service
}

type OwnerResolver interface {
	DefaultOwner(ctx context.Context) (accounts.Owner, bool, error)
	ByWebhookToken(ctx context.Context, token string) (accounts.Owner, bool, error)
}

type StreamTokenIssuer interface {
	IssueStream(now time.Time, userID string) (string, time.Time, error)
}

const (
	maxWebhookBody = 10 << 20

	routeDefault = "default"
	routeToken   = "token"

	reasonNoOwner      = "no_owner"
	reasonUnknownToken = "unknown_token"
)

// --- Voice platform webhooks ---
//
// Routing failures answer 200 with ok=false so the sender does not retry.
// Only a malformed body is a 400.

// Webhook ingests for the default owner.
func (h Handlers) Webhook(c *gin.Context) {
	log := logger.FromGin(c)
	owner, ok, err := h.Owners.DefaultOwner(c.Request.Context())
	if err != nil {
		log.Error("webhook owner lookup failed", slog.Any("err", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !ok {
		log.Warn("webhook: no owner user found, skipping")
		h.auditRejected(c, routeDefault, "", reasonNoOwner)
		c.JSON(http.StatusOK, gin.H{"ok": false, "reason": reasonNoOwner})
		return
	}
	h.ingest(c, owner, routeDefault, "")
}

// WebhookByToken ingests for the owner whose webhook token is in the path.
func (h Handlers) WebhookByToken(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	log := logger.FromGin(c).With(slog.String("token_prefix", audit.TokenPrefix(token)+"..."))
	log.Info("webhook received")

	owner, ok, err := h.Owners.ByWebhookToken(c.Request.Context(), token)
	if err != nil {
		log.Error("webhook owner lookup failed", slog.Any("err", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !ok {
		log.Warn("webhook: unknown or inactive token")
		h.auditRejected(c, routeToken, token, reasonUnknownToken)
		c.JSON(http.StatusOK, gin.H{"ok": false, "reason": reasonUnknownToken})
		return
	}
	h.ingest(c, owner, routeToken, token)
}

func (h Handlers) ingest(c *gin.Context, owner accounts.Owner, route, token string) {
	log := logger.FromGin(c).With(slog.String("owner_id", owner.ID))
	ctx := logger.With(c.Request.Context(), log)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	res, err := h.Ingestor.Ingest(ctx, owner, body)
	if err != nil {
		if errors.Is(err, ingest.ErrMalformedPayload) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		log.Error("webhook ingest failed", slog.Any("err", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	if h.Audit != nil {
		if err := h.Audit.LogProcessed(ctx, owner.ID, route, token, c.ClientIP(), res.ExternalCallID, res.ID, string(res.Action)); err != nil {
			log.Warn("webhook audit failed", slog.Any("err", err))
		}
	}

	resp := gin.H{"ok": true, "action": res.Action}
	if res.ID != "" {
		resp["id"] = res.ID
	}
	c.JSON(http.StatusOK, resp)
}

func (h Handlers) auditRejected(c *gin.Context, route, token, reason string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.LogRejected(c.Request.Context(), route, token, c.ClientIP(), reason); err != nil {
		logger.FromGin(c).Warn("webhook audit failed", slog.Any("err", err))
	}
}

// --- Alerts ---

func (h Handlers) ListAlerts(c *gin.Context) {
	ownerID, ok := requireUser(c)
	if !ok {
		return
	}
	var f alerts.ListFilter
	if v, present := c.GetQuery("is_read"); present {
		b := strings.EqualFold(strings.TrimSpace(v), "true")
		f.IsRead = &b
	}
	f.Type = alerts.Type(strings.TrimSpace(c.Query("type")))
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		f.Limit = n
	}

	out, err := h.Alerts.List(c.Request.Context(), ownerID, f)
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) UnreadAlertCount(c *gin.Context) {
	ownerID, ok := requireUser(c)
	if !ok {
		return
	}
	n, err := h.Alerts.UnreadCount(c.Request.Context(), ownerID)
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h Handlers) MarkAlertRead(c *gin.Context) {
	ownerID, ok := requireUser(c)
	if !ok {
		return
	}
	a, err := h.Alerts.MarkRead(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) MarkAllAlertsRead(c *gin.Context) {
	ownerID, ok := requireUser(c)
	if !ok {
		return
	}
	n, err := h.Alerts.MarkAllRead(c.Request.Context(), ownerID)
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_read": n})
}

func (h Handlers) ClearAlerts(c *gin.Context) {
	ownerID, ok := requireUser(c)
	if !ok {
		return
	}
	n, err := h.Alerts.ClearAll(c.Request.Context(), ownerID)
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// StreamToken mints a short-lived token for the alert stream query string,
// so long-lived access tokens stay out of URLs.
func (h Handlers) StreamToken(c *gin.Context) {
	ownerID, ok := requireUser(c)
	if !ok {
		return
	}
	tok, exp, err := h.Tokens.IssueStream(time.Now(), ownerID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "expires_at": exp.UTC()})
}

func requireUser(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return "", false
	}
	return uid, true
}

func writeAlertError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, alerts.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	case errors.Is(err, alerts.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("alerts request failed", slog.Any("err", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
