package credstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
)

// RedisStore persists credentials in Redis so a restarted process (or a
// replica) rehydrates the same session.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, prefix: prefix}, nil
}

// NewRedisStoreWithClient wraps an existing client; used by tests.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

// Save persists the token and optional snapshot.
func (s *RedisStore) Save(ctx context.Context, token string, snapshot *auth.Profile) error {
	if err := s.client.Set(ctx, s.key(TokenKey), token, 0).Err(); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	if snapshot == nil {
		return nil
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal profile snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(SnapshotKey), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to persist profile snapshot: %w", err)
	}
	return nil
}

// Load returns the persisted token and snapshot. A corrupt snapshot
// degrades to nil.
func (s *RedisStore) Load(ctx context.Context) (string, *auth.Profile, error) {
	token, err := s.client.Get(ctx, s.key(TokenKey)).Result()
	if err == redis.Nil {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load token: %w", err)
	}

	var snapshot *auth.Profile
	if data, err := s.client.Get(ctx, s.key(SnapshotKey)).Bytes(); err == nil {
		var p auth.Profile
		if json.Unmarshal(data, &p) == nil {
			snapshot = &p
		}
	}

	return token, snapshot, nil
}

// Clear removes every persisted credential.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(TokenKey), s.key(SnapshotKey)).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
