package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RelayChannel is the Pub/Sub channel shared by all API instances.
const RelayChannel = "alerts:live"

type relayMessage struct {
	OwnerID string          `json:"owner_id"`
	Payload json.RawMessage `json:"payload"`
}

// RedisRelay fans alerts out across instances. Run delivers everything
// received on the channel, including this instance's own publishes, to the
// local hub.
type RedisRelay struct {
	rdb     *redis.Client
	hub     *Hub
	channel string
	log     *slog.Logger
}

func NewRedisRelay(rdb *redis.Client, hub *Hub, log *slog.Logger) *RedisRelay {
	return &RedisRelay{rdb: rdb, hub: hub, channel: RelayChannel, log: log}
}

// Publish sends to Redis. When that fails the payload still reaches this
// instance's subscribers through the local hub, and the error is returned.
func (r *RedisRelay) Publish(ctx context.Context, ownerID string, payload []byte) error {
	b, err := json.Marshal(relayMessage{OwnerID: ownerID, Payload: payload})
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.channel, b).Err(); err != nil {
		r.hub.Notify(ownerID, payload)
		return fmt.Errorf("publish %s: %w", r.channel, err)
	}
	return nil
}

// Run subscribes until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.log.Info("alert relay subscribed", slog.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver([]byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) deliver(raw []byte) {
	var m relayMessage
	if err := json.Unmarshal(raw, &m); err != nil || m.OwnerID == "" || len(m.Payload) == 0 {
		r.log.Warn("alert relay: bad message", slog.Any("err", err))
		return
	}
	r.hub.Notify(m.OwnerID, m.Payload)
}
