// Package pgstore is the PostgreSQL backend for medications, doses and the
// audit trail. It mirrors the sqlite repositories method for method.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"adherence-tracker/internal/schedule"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Config holds pool settings
type Config struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// Store owns the connection pool shared by the repositories
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open connects to PostgreSQL and verifies the connection
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Ping reports whether the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Medications() *MedicationRepository { return &MedicationRepository{pool: s.pool} }
func (s *Store) Doses() *DoseRepository             { return &DoseRepository{pool: s.pool} }
func (s *Store) Audit() *AuditRepository            { return &AuditRepository{pool: s.pool} }

// Migrate applies embedded migrations not yet recorded in schema_migrations
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.applyMigration(ctx, name); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, name string) error {
	content, err := fs.ReadFile(migrationFiles, "migrations/"+name)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("applied migration", zap.String("name", name))
	return nil
}

// dateArg maps the zero date to NULL
func dateArg(d schedule.Date) interface{} {
	if d.IsZero() {
		return nil
	}
	return d.Time()
}

// scanDate converts a nullable DATE column
func scanDate(t *time.Time) schedule.Date {
	if t == nil {
		return schedule.Date{}
	}
	return schedule.DateOf(*t)
}

func textArg(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
