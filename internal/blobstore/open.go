package blobstore

import (
	"context"
	"fmt"

	"github.com/spherical-ai/doc-converter/internal/config"
	"github.com/spherical-ai/doc-converter/internal/retry"
)

// Open builds the blob store selected by cfg.Driver. Configuration errors are
// marked permanent; connection failures are left retryable.
func Open(ctx context.Context, cfg config.BlobsConfig) (Store, error) {
	switch cfg.Driver {
	case "disk":
		compression, err := ParseCompression(cfg.Compression)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		store, err := NewDiskStore(cfg.Dir, compression)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		return store, nil
	case "redis":
		return NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
		})
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, retry.Permanent(fmt.Errorf("unsupported blobs driver: %s", cfg.Driver))
	}
}
