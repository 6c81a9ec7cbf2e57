package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const processedKeyPrefix = "dispatch:processed:"

// ProcessedStore remembers handled message ids in Redis so that redelivered commands
// are skipped even after a restart of this process.
type ProcessedStore struct {
	c *redis.Client
}

func NewProcessedStore(addr string) *ProcessedStore {
	return &ProcessedStore{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

func (s *ProcessedStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	n, err := s.c.Exists(ctx, processedKey(messageID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis exists")
	}
	return n > 0, nil
}

// MarkProcessed is idempotent: repeated calls only refresh the ttl.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	if err := s.c.Set(ctx, processedKey(messageID), 1, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (s *ProcessedStore) Close() error {
	return s.c.Close()
}

func processedKey(messageID string) string {
	return processedKeyPrefix + messageID
}
