package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/spherical-ai/doc-converter/internal/domain"
)

// SQLConfig configures a SQLStore.
type SQLConfig struct {
	Driver          string // sqlite or postgres
	DSN             string // file path for sqlite, URL for postgres
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SQLStore keeps identities and artifact references in two tables, so every
// mutation touches only the rows of one identity.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// OpenSQLStore opens the database, applies migrations and returns the store.
func OpenSQLStore(ctx context.Context, cfg SQLConfig) (*SQLStore, error) {
	var driverName, dsn string
	switch cfg.Driver {
	case "sqlite":
		driverName = "sqlite3"
		dsn = sqliteDSN(cfg.DSN)
	case "postgres":
		driverName = "postgres"
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := NewMigrator(db, cfg.Driver).Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLStore{db: db, driver: cfg.Driver, now: time.Now}, nil
}

// sqliteDSN enables WAL so readers on other connections proceed while a write
// is in progress, and starts every transaction IMMEDIATE so writers queue on
// the busy timeout instead of failing on a read-to-write lock upgrade.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
}

// Create inserts a new identity.
func (s *SQLStore) Create(ctx context.Context, email, passwordHash string) (*domain.Identity, error) {
	identity := &domain.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
		Artifacts:    []domain.ArtifactRef{},
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, identity.ID, identity.Email, identity.PasswordHash, formatTime(identity.CreatedAt))
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return identity, nil
}

// FindByEmail returns the identity registered under email.
func (s *SQLStore) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return s.findOne(ctx, `
		SELECT id, email, password_hash, created_at FROM identities WHERE email = $1
	`, email)
}

// FindByID returns the identity with the given id.
func (s *SQLStore) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	return s.findOne(ctx, `
		SELECT id, email, password_hash, created_at FROM identities WHERE id = $1
	`, id)
}

func (s *SQLStore) findOne(ctx context.Context, query string, arg string) (*domain.Identity, error) {
	identity := &domain.Identity{}
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}
	if identity.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	identity.Artifacts, err = s.listArtifacts(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *SQLStore) listArtifacts(ctx context.Context, identityID string) ([]domain.ArtifactRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, original_name, derived_name, created_at, size_bytes, checksum
		FROM artifacts
		WHERE identity_id = $1
		ORDER BY position
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []domain.ArtifactRef{}
	for rows.Next() {
		var ref domain.ArtifactRef
		var createdAt string
		if err := rows.Scan(&ref.ID, &ref.OriginalName, &ref.DerivedName, &createdAt, &ref.SizeBytes, &ref.Checksum); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if ref.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, ref)
	}
	return artifacts, rows.Err()
}

// AppendArtifact appends ref after the identity's current last artifact.
func (s *SQLStore) AppendArtifact(ctx context.Context, identityID string, ref domain.ArtifactRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Postgres locks the identity row so concurrent appends get distinct
	// positions; sqlite already serializes writers.
	if err := identityExists(ctx, tx, identityID, s.driver == "postgres"); err != nil {
		return err
	}

	var position int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position), 0) + 1 FROM artifacts WHERE identity_id = $1
	`, identityID).Scan(&position); err != nil {
		return fmt.Errorf("next artifact position: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artifacts (id, identity_id, position, original_name, derived_name, created_at, size_bytes, checksum)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ref.ID, identityID, position, ref.OriginalName, ref.DerivedName,
		formatTime(ref.CreatedAt), ref.SizeBytes, ref.Checksum)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return tx.Commit()
}

// RemoveArtifact deletes the reference, scoped to the owning identity.
func (s *SQLStore) RemoveArtifact(ctx context.Context, identityID, artifactID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := identityExists(ctx, tx, identityID, false); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM artifacts WHERE id = $1 AND identity_id = $2
	`, artifactID, identityID)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ArtifactIDs returns every referenced artifact id.
func (s *SQLStore) ArtifactIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM artifacts`)
	if err != nil {
		return nil, fmt.Errorf("query artifact ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// MigrationStatus reports the applied and pending schema migrations.
func (s *SQLStore) MigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	return NewMigrator(s.db, s.driver).Status(ctx)
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func identityExists(ctx context.Context, tx *sql.Tx, identityID string, forUpdate bool) error {
	query := `SELECT 1 FROM identities WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var one int
	err := tx.QueryRowContext(ctx, query, identityID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query identity: %w", err)
	}
	return nil
}

// isUniqueViolation recognises unique constraint errors from both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
