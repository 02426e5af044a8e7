package domain

import "context"

// Database defines lifecycle operations and repository access for the
// underlying database. Each implementation (SQLite, Postgres) owns its own
// migration files and strategy, so the whole backend is swappable.
type Database interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	Users() UserRepository
	Features() FeatureRepository
	Votes() VoteRepository
}
