package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/featurevote/internal/domain"
)

// featureRepo implements domain.FeatureRepository using SQLite.
type featureRepo struct {
	db *sql.DB
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const featureSelect = `
	SELECT f.id, f.title, f.description, f.author_id, f.created_at, f.updated_at,
	       u.id, u.name, u.email, u.created_at,
	       (SELECT COUNT(*) FROM votes v WHERE v.feature_id = f.id) AS vote_count
	FROM features f
	JOIN users u ON u.id = f.author_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeature(row rowScanner) (*domain.Feature, error) {
	var (
		f    domain.Feature
		desc sql.NullString
	)
	err := row.Scan(&f.ID, &f.Title, &desc, &f.AuthorID, &f.CreatedAt, &f.UpdatedAt,
		&f.Author.ID, &f.Author.Name, &f.Author.Email, &f.Author.CreatedAt,
		&f.VoteCount)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		f.Description = &desc.String
	}
	return &f, nil
}

func getFeature(ctx context.Context, q rowQuerier, id int64) (*domain.Feature, error) {
	f, err := scanFeature(q.QueryRowContext(ctx, featureSelect+" WHERE f.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get feature: %w", err)
	}
	return f, nil
}

func (r *featureRepo) Create(ctx context.Context, feature *domain.Feature) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO features (title, description, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		feature.Title, feature.Description, feature.AuthorID, now, now,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert feature: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get feature id: %w", err)
	}

	created, err := getFeature(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	*feature = *created
	return nil
}

func (r *featureRepo) GetByID(ctx context.Context, id int64) (*domain.Feature, error) {
	return getFeature(ctx, r.db, id)
}

func (r *featureRepo) List(ctx context.Context, sort domain.FeatureSort, limit, offset int) ([]domain.Feature, error) {
	// AUTOINCREMENT ids follow insertion order, so they sort by creation
	// time without comparing stored timestamp text.
	order := " ORDER BY f.id ASC"
	if sort == domain.SortVotes {
		order = " ORDER BY vote_count DESC, f.id ASC"
	}

	rows, err := r.db.QueryContext(ctx, featureSelect+order+" LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	features := []domain.Feature{}
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, *f)
	}
	return features, rows.Err()
}

func (r *featureRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM features").Scan(&n); err != nil {
		return 0, fmt.Errorf("count features: %w", err)
	}
	return n, nil
}
