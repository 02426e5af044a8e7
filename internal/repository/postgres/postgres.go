// Package postgres implements the domain repositories over PostgreSQL
// using a pgx connection pool.
//
// The pool is owned by DB and closed by DB.Close. Constraint violations
// are mapped to domain sentinels by SQLSTATE and constraint name.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/msomdec/featurevote/internal/domain"
)

// DB wraps a pgx pool and hands out the repositories built on it.
// It implements domain.Database.
type DB struct {
	Pool *pgxpool.Pool

	users    *userRepo
	features *featureRepo
	votes    *voteRepo
}

var _ domain.Database = (*DB)(nil)

// New connects to databaseURL, bounds the pool to maxConns (when > 0) and
// verifies connectivity.
func New(ctx context.Context, databaseURL string, maxConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	db := &DB{Pool: pool}
	if err := db.pingWithin(ctx, 3*time.Second); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.users = &userRepo{pool: pool}
	db.features = &featureRepo{pool: pool}
	db.votes = &voteRepo{pool: pool}
	return db, nil
}

func (db *DB) pingWithin(parent context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return db.Pool.Ping(ctx)
}

// Ping checks that a connection can be acquired.
func (db *DB) Ping(ctx context.Context) error { return db.pingWithin(ctx, 2*time.Second) }

// Migrate applies the embedded schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := runMigrations(ctx, db.Pool)
	return err
}

func (db *DB) Close() error {
	db.Pool.Close()
	return nil
}

func (db *DB) Users() domain.UserRepository { return db.users }

func (db *DB) Features() domain.FeatureRepository { return db.features }

func (db *DB) Votes() domain.VoteRepository { return db.votes }
