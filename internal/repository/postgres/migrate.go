package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockID serializes concurrent migrators across processes.
const migrationLockID = 7_351_240_001

// runMigrations applies unapplied migration files in filename order. Each
// file runs in its own transaction, after taking a transaction-scoped
// advisory lock so two instances starting together cannot race.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return 0, fmt.Errorf("ensure migrations table: %w", err)
	}

	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return 0, fmt.Errorf("list migration files: %w", err)
	}
	sort.Strings(files)

	n := 0
	for _, path := range files {
		name := strings.TrimPrefix(path, "migrations/")
		applied, err := applyMigration(ctx, pool, path, name)
		if err != nil {
			return n, fmt.Errorf("apply migration %s: %w", name, err)
		}
		if applied {
			n++
			slog.Info("migration applied", "backend", "postgres", "file", name)
		}
	}
	return n, nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, path, name string) (bool, error) {
	content, err := fs.ReadFile(migrationFS, path)
	if err != nil {
		return false, fmt.Errorf("read file: %w", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", int64(migrationLockID)); err != nil {
		return false, fmt.Errorf("take migration lock: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)", name,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check migration: %w", err)
	}
	if exists {
		slog.Debug("migration already applied", "backend", "postgres", "file", name)
		return false, nil
	}

	// No arguments, so pgx sends this over the simple protocol and the file
	// may hold several statements.
	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return false, fmt.Errorf("execute sql: %w", err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", name); err != nil {
		return false, fmt.Errorf("record migration: %w", err)
	}
	return true, commit(ctx, tx)
}

func commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
