package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type Redis struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewRedis(addr string, password string, db int, max int, window time.Duration) *Redis {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: client, max: max, window: window}
}

func (l *Redis) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *Redis) Close() error {
	return l.client.Close()
}

// Allow counts attempts in a fixed window keyed per client. The expiry is
// set when the counter is first created so the window starts at the first
// attempt.
func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	counterKey := "ratelimit:login:" + key
	count, err := l.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, counterKey, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.max), nil
}
