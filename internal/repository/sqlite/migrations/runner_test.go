package migrations_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/msomdec/featurevote/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// A single connection keeps every statement on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	return db
}

func TestRunMigrations(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	n, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("first migration run: %v", err)
	}
	if n == 0 {
		t.Fatal("expected at least one migration to be applied")
	}

	for _, table := range []string{"users", "features", "votes"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	first, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("second run (idempotent): %v", err)
	}
	if second != 0 {
		t.Fatalf("expected second run to apply 0 migrations, applied %d", second)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != first {
		t.Fatalf("expected %d migration records, got %d", first, count)
	}
}

func TestVotesUniqueConstraint(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mustExec := func(q string, args ...any) {
		t.Helper()
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
	mustExec("INSERT INTO users (email, name, password_hash) VALUES ('a@x.com', 'A', 'h')")
	mustExec("INSERT INTO users (email, name, password_hash) VALUES ('b@x.com', 'B', 'h')")
	mustExec("INSERT INTO features (title, author_id) VALUES ('Dark mode', 1)")
	mustExec("INSERT INTO votes (user_id, feature_id) VALUES (2, 1)")

	if _, err := db.ExecContext(ctx, "INSERT INTO votes (user_id, feature_id) VALUES (2, 1)"); err == nil {
		t.Fatal("expected unique constraint violation on duplicate vote")
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO votes (user_id, feature_id) VALUES (2, 99)"); err == nil {
		t.Fatal("expected foreign key violation for missing feature")
	}
}

func TestApplyInFilenameOrder(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"002_seed.sql":   {Data: []byte("INSERT INTO things (name) VALUES ('a');")},
		"001_things.sql": {Data: []byte("CREATE TABLE things (name TEXT NOT NULL);")},
		"README.md":      {Data: []byte("not a migration")},
	}
	n, err := migrations.Apply(ctx, db, fsys)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 migrations applied, got %d", n)
	}

	// A later file is picked up on the next run; earlier ones are skipped.
	fsys["003_more.sql"] = &fstest.MapFile{Data: []byte("INSERT INTO things (name) VALUES ('b');")}
	if n, err = migrations.Apply(ctx, db, fsys); err != nil || n != 1 {
		t.Fatalf("second Apply = %d, %v; want 1, nil", n, err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM things").Scan(&count); err != nil {
		t.Fatalf("count things: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}

func TestApplyRejectsEditedMigration(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"001_things.sql": {Data: []byte("CREATE TABLE things (name TEXT);")},
	}
	if _, err := migrations.Apply(ctx, db, fsys); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	fsys["001_things.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE things (name TEXT, extra TEXT);")}
	fsys["002_other.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE other (id INTEGER);")}
	n, err := migrations.Apply(ctx, db, fsys)
	if !errors.Is(err, migrations.ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing applied, got %d", n)
	}

	var name string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'other'").Scan(&name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected table other to be absent, got %q, %v", name, err)
	}
}

func TestApplyRollsBackFailedMigration(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE half (id INTEGER); INSERT INTO missing VALUES (1);")},
	}
	n, err := migrations.Apply(ctx, db, fsys)
	if err == nil {
		t.Fatal("expected error from broken migration")
	}
	if n != 1 {
		t.Fatalf("expected 1 migration applied before the failure, got %d", n)
	}

	var recorded int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&recorded); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if recorded != 1 {
		t.Fatalf("expected 1 recorded migration, got %d", recorded)
	}
	var name string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'half'").Scan(&name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected table half to be rolled back, got %q, %v", name, err)
	}
}
