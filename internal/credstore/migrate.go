package credstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// Migrator applies the embedded schema migrations for one driver.
type Migrator struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

// NewMigrator creates a migrator for db.
func NewMigrator(db *sql.DB, driver string) *Migrator {
	return &Migrator{db: db, driver: driver}
}

// MigrationStatus represents the status of migrations.
type MigrationStatus struct {
	UpToDate bool
	Applied  []string
	Pending  []string
}

// Status reports which embedded migrations have not been applied yet.
func (m *Migrator) Status(ctx context.Context) (*MigrationStatus, error) {
	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	files, err := m.listMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("list migration files: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}

	status := &MigrationStatus{Pending: []string{}}
	for _, name := range files {
		if applied[name] {
			status.Applied = append(status.Applied, name)
		} else {
			status.Pending = append(status.Pending, name)
		}
	}
	status.UpToDate = len(status.Pending) == 0
	return status, nil
}

// Up applies every pending migration in name order, each in its own
// transaction together with its schema_migrations row.
func (m *Migrator) Up(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	for _, name := range status.Pending {
		if err := m.runMigration(ctx, name); err != nil {
			return fmt.Errorf("run migration %s: %w", name, err)
		}
	}
	return nil
}

func (m *Migrator) ensureSchemaMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

func (m *Migrator) listMigrationFiles() ([]string, error) {
	dir := path.Join("migrations", m.driver)
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) runMigration(ctx context.Context, name string) error {
	data, err := migrationFS.ReadFile(path.Join("migrations", m.driver, name))
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`,
		name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}
