package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"VesselOSINT/internal/ports"
)

// RedisSeenStore keeps processed article ids as expiring keys so the seen set
// cannot grow without bound.
type RedisSeenStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ ports.SeenStore = (*RedisSeenStore)(nil)

// NewRedisSeenStore wraps an existing client. A zero ttl keeps keys forever.
func NewRedisSeenStore(client *redis.Client, prefix string, ttl time.Duration) *RedisSeenStore {
	return &RedisSeenStore{client: client, prefix: prefix, ttl: ttl}
}

// DialRedis parses url, connects and pings.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// AlreadyProcessed checks every id in one round trip.
func (s *RedisSeenStore) AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(ids) == 0 {
		return result, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis exists: %w", err)
	}

	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			result[ids[i]] = true
		}
	}
	return result, nil
}

// MarkProcessed sets one key per id.
func (s *RedisSeenStore) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Set(ctx, s.key(id), time.Now().UTC().Format(time.RFC3339), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis mark processed: %w", err)
	}
	return nil
}

// Health pings the server.
func (s *RedisSeenStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSeenStore) key(id string) string {
	return s.prefix + id
}
