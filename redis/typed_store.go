package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TypedStore keeps JSON encoded values of type V under "<prefix>:<key>".
type TypedStore[V any] struct {
	client *Client
	prefix string
}

// NewTypedStore returns a store over client. An empty prefix leaves keys as is.
func NewTypedStore[V any](client *Client, prefix string) *TypedStore[V] {
	return &TypedStore[V]{client: client, prefix: prefix}
}

// Key returns the redis key for key.
func (s *TypedStore[V]) Key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Get decodes the value at key. A missing key is (zero, false, nil).
func (s *TypedStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var v V
	raw, err := s.client.rdb.Get(ctx, s.Key(key)).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return v, false, nil
	case err != nil:
		return v, false, fmt.Errorf("redis get %s: %w", s.Key(key), err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("redis decode %s: %w", s.Key(key), err)
	}
	return v, true, nil
}

// Put stores v at key. A zero ttl keeps the key until deleted.
func (s *TypedStore[V]) Put(ctx context.Context, key string, v V, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", s.Key(key), err)
	}
	if err := s.client.rdb.Set(ctx, s.Key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.Key(key), err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error.
func (s *TypedStore[V]) Delete(ctx context.Context, key string) error {
	if err := s.client.rdb.Del(ctx, s.Key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.Key(key), err)
	}
	return nil
}
