package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/msomdec/featurevote/internal/domain"
	"github.com/msomdec/featurevote/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection and hands out the repositories built on it.
// It implements domain.Database.
type DB struct {
	SqlDB *sql.DB

	users    *UserRepository
	features *featureRepo
	votes    *voteRepo
}

var _ domain.Database = (*DB)(nil)

// New opens a SQLite database at the given path and configures it for use.
// Foreign keys, WAL mode and a busy timeout are set through the DSN so every
// pooled connection gets them.
func New(dbPath string) (*DB, error) {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")

	sqlDB, err := sql.Open("sqlite", "file:"+dbPath+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer; a single connection serializes writes and
	// leaves the uniqueness constraints to decide races.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(context.Background()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{SqlDB: sqlDB}
	db.users = NewUserRepository(db)
	db.features = &featureRepo{db: sqlDB}
	db.votes = &voteRepo{db: sqlDB}
	return db, nil
}

// Migrate applies the embedded schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	n, err := migrations.Run(ctx, db.SqlDB)
	if err != nil {
		return err
	}
	slog.Debug("sqlite migrations complete", "applied", n)
	return nil
}

func (db *DB) Ping(ctx context.Context) error { return db.SqlDB.PingContext(ctx) }

func (db *DB) Close() error { return db.SqlDB.Close() }

func (db *DB) Users() domain.UserRepository { return db.users }

func (db *DB) Features() domain.FeatureRepository { return db.features }

func (db *DB) Votes() domain.VoteRepository { return db.votes }
