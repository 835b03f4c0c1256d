package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

var errNoRedis = errors.New("redis client not configured")

// Publish sends payload on a Redis channel.
func (s *Service) Publish(ctx context.Context, channel string, payload []byte) error {
	if s.Redis == nil {
		return errNoRedis
	}
	return s.Redis.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a pattern subscription. The caller closes it.
func (s *Service) Subscribe(ctx context.Context, pattern string) *redis.PubSub {
	return s.Redis.PSubscribe(ctx, pattern)
}
