package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// RedisStore keeps each blob in a hash with its bytes and creation time.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

const (
	fieldData    = "data"
	fieldCreated = "created"
	fieldSize    = "size"
)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "dc:"
	}

	return &RedisStore{
		client: client,
		prefix: prefix + "blob:",
		now:    time.Now,
	}, nil
}

// Put stores data under id.
func (s *RedisStore) Put(ctx context.Context, id string, data []byte) error {
	if err := validateID(id); err != nil {
		return err
	}
	err := s.client.HSet(ctx, s.prefix+id,
		fieldData, data,
		fieldCreated, s.now().UnixNano(),
		fieldSize, len(data),
	).Err()
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Get retrieves the blob bytes.
func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	val, err := s.client.HGet(ctx, s.prefix+id, fieldData).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget: %w", err)
	}
	return val, nil
}

// Delete removes the blob.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.prefix+id).Result()
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List scans every blob key under the prefix.
func (s *RedisStore) List(ctx context.Context) ([]BlobInfo, error) {
	var infos []BlobInfo
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := strings.TrimPrefix(key, s.prefix)

		vals, err := s.client.HMGet(ctx, key, fieldCreated, fieldSize).Result()
		if err != nil {
			return nil, fmt.Errorf("redis hmget: %w", err)
		}

		info := BlobInfo{ID: id}
		if raw, ok := vals[0].(string); ok {
			if nanos, err := strconv.ParseInt(raw, 10, 64); err == nil {
				info.CreatedAt = time.Unix(0, nanos)
			}
		}
		if raw, ok := vals[1].(string); ok {
			info.Size, _ = strconv.ParseInt(raw, 10, 64)
		}
		infos = append(infos, info)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return infos, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
