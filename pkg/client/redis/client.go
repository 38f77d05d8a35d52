package redis

import (
	"context"
	"fmt"
	"github.com/redis/go-redis/v9"
	"pharmacy/internal/config"
	"time"
)

// Client is the subset of go-redis the token store relies on.
type Client interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

func NewClient(ctx context.Context, sc config.StorageRedis) (client *redis.Client, err error) {
	maxAttempts := sc.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	err = doWithTries(func() error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", sc.Host, sc.Port),
			Password: sc.Password,
			DB:       sc.DB,
		})

		if _, err := client.Ping(ctx).Result(); err != nil {
			_ = client.Close()
			return err
		}
		return nil
	}, maxAttempts, 2*time.Second)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxAttempts, err)
	}

	return client, nil
}

func doWithTries(fn func() error, attempts int, delay time.Duration) (err error) {
	for attempts > 0 {
		if err = fn(); err != nil {
			attempts--
			if attempts > 0 {
				time.Sleep(delay)
			}
			continue
		}
		return nil
	}
	return
}
