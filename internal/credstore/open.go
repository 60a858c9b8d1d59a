package credstore

import (
	"context"
	"fmt"

	"github.com/spherical-ai/doc-converter/internal/config"
	"github.com/spherical-ai/doc-converter/internal/retry"
)

// Open builds the store selected by cfg.Driver. Configuration errors are
// marked permanent; connection failures are left retryable.
func Open(ctx context.Context, cfg config.CredentialsConfig) (Store, error) {
	switch cfg.Driver {
	case "file":
		store, err := NewFileStore(cfg.File.Path)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		return store, nil
	case "sqlite":
		return OpenSQLStore(ctx, SQLConfig{
			Driver:       "sqlite",
			DSN:          cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
		})
	case "postgres":
		return OpenSQLStore(ctx, SQLConfig{
			Driver:          "postgres",
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
	default:
		return nil, retry.Permanent(fmt.Errorf("unsupported credentials driver: %s", cfg.Driver))
	}
}
