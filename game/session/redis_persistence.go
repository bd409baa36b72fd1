package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys: cubeblast:session:{id} -> session JSON
const DefaultRedisPrefix = "cubeblast:session:"

// RedisPersistence implements SessionPersistence on top of Redis string keys
type RedisPersistence struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisPersistence creates a Redis-backed persistence layer. A zero ttl keeps sessions forever.
func NewRedisPersistence(rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisPersistence {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisPersistence{rdb: rdb, prefix: prefix, ttl: ttl}
}

// buildKey builds the key of a session: {prefix}{id}
func (r *RedisPersistence) buildKey(id string) string {
	return r.prefix + strings.ToLower(id)
}

// Save stores the session JSON and refreshes its expiration
func (r *RedisPersistence) Save(ctx context.Context, data *PersistedSessionData) error {
	if data == nil || data.Snapshot == nil {
		return fmt.Errorf("session data cannot be nil")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	if err := r.rdb.Set(ctx, r.buildKey(data.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", data.ID, err)
	}
	return nil
}

// Load reads a session
func (r *RedisPersistence) Load(ctx context.Context, id string) (*PersistedSessionData, error) {
	payload, err := r.rdb.Get(ctx, r.buildKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if data.Snapshot == nil {
		return nil, fmt.Errorf("session %s has no snapshot", id)
	}
	return &data, nil
}

// Delete removes a session
func (r *RedisPersistence) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, r.buildKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll scans for every session key under the prefix
func (r *RedisPersistence) ListAll(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Exists checks if a session key exists
func (r *RedisPersistence) Exists(ctx context.Context, id string) bool {
	n, err := r.rdb.Exists(ctx, r.buildKey(id)).Result()
	return err == nil && n > 0
}
