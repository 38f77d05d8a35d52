package redis

import (
	"context"
	"errors"
	"fmt"
	redis2 "github.com/redis/go-redis/v9"
	"pharmacy/internal/model"
	"pharmacy/internal/storage"
	"pharmacy/pkg/client/redis"
	"time"
)

type repositoryRedis struct {
	Client     redis.Client
	Namespace  string
	RefreshTTL time.Duration
}

// NewRepositoryRedis stores tokens under <namespace>:access_token and
// <namespace>:refresh_token. A zero refreshTTL keeps the refresh token forever.
func NewRepositoryRedis(client redis.Client, namespace string, refreshTTL time.Duration) storage.Storage {
	return &repositoryRedis{Client: client, Namespace: namespace, RefreshTTL: refreshTTL}
}

func (r *repositoryRedis) key(name string) string {
	return fmt.Sprintf("%s:%s", r.Namespace, name)
}

func (r *repositoryRedis) Load(ctx context.Context) (model.TokenPair, error) {
	access, err := r.get(ctx, storage.KeyAccessToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := r.get(ctx, storage.KeyRefreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	return model.TokenPair{Access: access, Refresh: refresh}, nil
}

func (r *repositoryRedis) SaveAccess(ctx context.Context, access string) error {
	return r.set(ctx, storage.KeyAccessToken, access, 0)
}

func (r *repositoryRedis) SaveRefresh(ctx context.Context, refresh string) error {
	return r.set(ctx, storage.KeyRefreshToken, refresh, r.RefreshTTL)
}

func (r *repositoryRedis) Clear(ctx context.Context) error {
	err := r.Client.Del(ctx, r.key(storage.KeyAccessToken), r.key(storage.KeyRefreshToken)).Err()
	if err != nil && !errors.Is(err, redis2.Nil) {
		return fmt.Errorf("redis.Clear: %w", err)
	}
	return nil
}

func (r *repositoryRedis) get(ctx context.Context, name string) (string, error) {
	val, err := r.Client.Get(ctx, r.key(name)).Result()
	if errors.Is(err, redis2.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis.Get %s: %w", name, err)
	}
	return val, nil
}

func (r *repositoryRedis) set(ctx context.Context, name, value string, ttl time.Duration) error {
	if value == "" {
		if err := r.Client.Del(ctx, r.key(name)).Err(); err != nil && !errors.Is(err, redis2.Nil) {
			return fmt.Errorf("redis.Del %s: %w", name, err)
		}
		return nil
	}
	if err := r.Client.Set(ctx, r.key(name), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis.Set %s: %w", name, err)
	}
	return nil
}
