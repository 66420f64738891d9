// Package redisstore adapts Redis to the storage.Store contract using a
// single key holding the scheduler's serialized snapshot.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store is a storage.Store backed by one Redis key: a plain GET/SET value
// store rather than pub/sub, since the scheduler needs durable state, not
// fan-out.
type Store struct {
	client *redis.Client
	key    string
}

// Config configures how Store dials Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string // storage key holding the snapshot blob
}

// New dials Redis and verifies connectivity with Ping before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("redisstore: Key must not be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return &Store{client: client, key: cfg.Key}, nil
}

// Get returns the blob currently stored under the configured key.
func (s *Store) Get(ctx context.Context) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redisstore: get %s: %w", s.key, err)
	}
	return data, true, nil
}

// Set overwrites the blob stored under the configured key with no
// expiration: snapshots live until explicitly replaced or removed.
func (s *Store) Set(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", s.key, err)
	}
	return nil
}

// Remove deletes the key. A missing key is not an error.
func (s *Store) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redisstore: del %s: %w", s.key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
