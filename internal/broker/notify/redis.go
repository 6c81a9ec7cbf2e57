package notify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type redisConn struct {
	c *redis.Client
}

// RedisDialer opens a dedicated single-connection client per attempt and checks it with PING.
// Retries are disabled: one attempt means one attempt.
func RedisDialer(addr string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		c := redis.NewClient(&redis.Options{
			Addr:       addr,
			PoolSize:   1,
			MaxRetries: -1,
		})
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			return nil, errors.Wrap(err, "redis connect")
		}
		return &redisConn{c: c}, nil
	}
}

func (r *redisConn) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := r.c.Publish(ctx, channel, payload).Err(); err != nil {
		return errors.Wrap(err, "redis publish")
	}
	return nil
}

func (r *redisConn) Close() error {
	return r.c.Close()
}
