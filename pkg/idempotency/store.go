package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers delivered message coordinates for ttl. Keys are scoped by
// consumer group so two groups reading the same topic do not hide messages
// from each other.
type Store struct {
	rdb   *redis.Client
	group string
	ttl   time.Duration
}

func NewStore(rdb *redis.Client, group string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, group: group, ttl: ttl}
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%s:%d:%d", s.group, topic, partition, offset)
}

// Seen marks key as delivered and reports whether it already was.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}
