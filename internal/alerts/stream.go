package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"callflow-platform/internal/accounts"
	"callflow-platform/internal/auth"
	"callflow-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const DefaultHeartbeat = 30 * time.Second

var heartbeatFrame = []byte(": heartbeat\n\n")

// TokenVerifier checks the short-lived credential presented by a stream client.
type TokenVerifier interface {
	Verify(token string, expected auth.TokenType, now time.Time) (auth.Claims, error)
}

// OwnerLookup confirms that the token's user is still an active owner.
type OwnerLookup interface {
	ActiveByID(ctx context.Context, id string) (accounts.Owner, bool, error)
}

// StreamServer serves live alerts as server-sent events.
//
// A connection authenticates, registers a private channel, then loops: each
// delivery is written as a data frame and every idle heartbeat interval a
// comment frame keeps intermediaries from timing out. The channel is always
// unregistered when the client goes away or the server shuts down.
type StreamServer struct {
	hub       *Hub
	tokens    TokenVerifier
	owners    OwnerLookup
	heartbeat time.Duration
	clock     func() time.Time

	closing   chan struct{}
	closeOnce sync.Once
}

func NewStreamServer(hub *Hub, tokens TokenVerifier, owners OwnerLookup, heartbeat time.Duration) *StreamServer {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &StreamServer{
		hub:       hub,
		tokens:    tokens,
		owners:    owners,
		heartbeat: heartbeat,
		clock:     time.Now,
		closing:   make(chan struct{}),
	}
}

// Shutdown ends every open stream. http.Server.Shutdown does not cancel
// active requests, so it is registered with RegisterOnShutdown.
func (s *StreamServer) Shutdown() {
	s.closeOnce.Do(func() { close(s.closing) })
}

var (
	errShuttingDown = errors.New("server shutting down")
	errNoToken      = errors.New("access token required")
)

// Handle is GET /api/v1/alerts/stream?access_token=<jwt> (or ?token=).
// Browsers' EventSource cannot set headers, hence the query parameter.
func (s *StreamServer) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	owner, err := s.authenticate(c)
	if err != nil {
		log.Info("alert stream rejected", slog.Any("err", err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ch := s.hub.Register(owner.ID)
	defer s.hub.Unregister(owner.ID, ch)
	log = log.With(slog.String("owner_id", owner.ID))
	log.Debug("alert stream opened")

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	err = s.stream(c.Request.Context(), c.Writer, ch)
	log.Debug("alert stream closed", slog.Any("reason", err))
}

// stream runs until ctx is done, the server shuts down or a write fails.
func (s *StreamServer) stream(ctx context.Context, w gin.ResponseWriter, ch <-chan []byte) error {
	timer := time.NewTimer(s.heartbeat)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closing:
			return errShuttingDown
		case payload := <-ch:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
		case <-timer.C:
			if _, err := w.Write(heartbeatFrame); err != nil {
				return err
			}
		}
		w.Flush()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.heartbeat)
	}
}

func (s *StreamServer) authenticate(c *gin.Context) (accounts.Owner, error) {
	raw := strings.TrimSpace(c.Query("access_token"))
	if raw == "" {
		raw = strings.TrimSpace(c.Query("token"))
	}
	if raw == "" {
		return accounts.Owner{}, errNoToken
	}

	now := s.clock()
	claims, err := s.tokens.Verify(raw, auth.TokenTypeStream, now)
	if errors.Is(err, auth.ErrTokenTypeMismatch) {
		// Access tokens are accepted too, for clients that have not moved to
		// minted stream tokens.
		claims, err = s.tokens.Verify(raw, auth.TokenTypeAccess, now)
	}
	if err != nil {
		return accounts.Owner{}, err
	}

	owner, ok, err := s.owners.ActiveByID(c.Request.Context(), claims.UserID)
	if err != nil {
		return accounts.Owner{}, err
	}
	if !ok {
		return accounts.Owner{}, fmt.Errorf("owner %s not active", claims.UserID)
	}
	return owner, nil
}
