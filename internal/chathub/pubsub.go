package chathub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chatsync/backend/internal/config"
	"chatsync/backend/internal/models"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Bus is the Redis surface the relay needs; *storage.Service satisfies it.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, pattern string) *redis.PubSub
}

// RedisBroadcaster relays group events through Redis pub/sub so every hub
// process delivers them to its own local connections.
type RedisBroadcaster struct {
	bus    Bus
	local  *Groups
	prefix string
	log    *slog.Logger
}

type relayFrame struct {
	UserID string          `json:"user_id,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

func NewRedisBroadcaster(bus Bus, local *Groups, prefix string, log *slog.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{bus: bus, local: local, prefix: prefix, log: log}
}

func (b *RedisBroadcaster) userChannel(userID string) string {
	return b.prefix + "user:" + userID
}

func (b *RedisBroadcaster) allChannel() string {
	return b.prefix + "all"
}

func (b *RedisBroadcaster) Publish(ctx context.Context, userID string, ev models.OutboundEvent) {
	if err := b.send(ctx, b.userChannel(userID), userID, ev); err != nil {
		b.log.Error("relay - publish - failed, delivering locally",
			slog.String("user_id", userID),
			slog.String("event", ev.Event),
			slog.Any("error", err),
		)
		b.local.Publish(ctx, userID, ev)
	}
}

func (b *RedisBroadcaster) PublishAll(ctx context.Context, ev models.OutboundEvent) {
	if err := b.send(ctx, b.allChannel(), "", ev); err != nil {
		b.log.Error("relay - publish all - failed, delivering locally",
			slog.String("event", ev.Event),
			slog.Any("error", err),
		)
		b.local.PublishAll(ctx, ev)
	}
}

func (b *RedisBroadcaster) send(ctx context.Context, channel, userID string, ev models.OutboundEvent) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}
	payload, err := json.Marshal(relayFrame{UserID: userID, Event: ev.Event, Data: data})
	if err != nil {
		return fmt.Errorf("encode relay frame: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.RelayPublishTimeout)
	defer cancel()
	return b.bus.Publish(ctx, channel, payload)
}

// Deliver hands a relayed payload to local connections.
func (b *RedisBroadcaster) Deliver(ctx context.Context, channel string, payload []byte) error {
	var frame relayFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return fmt.Errorf("decode relay frame: %w", err)
	}
	ev := models.OutboundEvent{Event: frame.Event, Data: frame.Data}

	if channel == b.allChannel() {
		b.local.PublishAll(ctx, ev)
		return nil
	}
	userID, ok := strings.CutPrefix(channel, b.prefix+"user:")
	if !ok || userID == "" {
		return fmt.Errorf("unexpected relay channel %q", channel)
	}
	b.local.Publish(ctx, userID, ev)
	return nil
}

// Listen consumes relayed events until ctx is cancelled.
func (b *RedisBroadcaster) Listen(ctx context.Context) {
	pubsub := b.bus.Subscribe(ctx, b.prefix+"*")
	defer pubsub.Close()

	b.log.Info("relay - listen - subscribed", slog.String("pattern", b.prefix+"*"))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := b.Deliver(ctx, msg.Channel, []byte(msg.Payload)); err != nil {
				b.log.Warn("relay - deliver - dropped", slog.Any("error", err))
			}
		}
	}
}
