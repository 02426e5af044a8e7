package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/msomdec/featurevote/internal/domain"
)

type featureRepo struct {
	pool *pgxpool.Pool
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const featureSelect = `
	SELECT f.id, f.title, f.description, f.author_id, f.created_at, f.updated_at,
	       u.id, u.name, u.email, u.created_at,
	       (SELECT COUNT(*) FROM votes v WHERE v.feature_id = f.id) AS vote_count
	FROM features f
	JOIN users u ON u.id = f.author_id`

func scanFeature(row pgx.Row) (*domain.Feature, error) {
	var f domain.Feature
	err := row.Scan(&f.ID, &f.Title, &f.Description, &f.AuthorID, &f.CreatedAt, &f.UpdatedAt,
		&f.Author.ID, &f.Author.Name, &f.Author.Email, &f.Author.CreatedAt,
		&f.VoteCount)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func getFeature(ctx context.Context, q querier, id int64) (*domain.Feature, error) {
	f, err := scanFeature(q.QueryRow(ctx, featureSelect+" WHERE f.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get feature: %w", err)
	}
	return f, nil
}

func (r *featureRepo) Create(ctx context.Context, feature *domain.Feature) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO features (title, description, author_id)
		 VALUES ($1, $2, $3) RETURNING id`,
		feature.Title, feature.Description, feature.AuthorID,
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert feature: %w", err)
	}

	created, err := getFeature(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := commit(ctx, tx); err != nil {
		return err
	}

	*feature = *created
	return nil
}

func (r *featureRepo) GetByID(ctx context.Context, id int64) (*domain.Feature, error) {
	return getFeature(ctx, r.pool, id)
}

func (r *featureRepo) List(ctx context.Context, sort domain.FeatureSort, limit, offset int) ([]domain.Feature, error) {
	order := " ORDER BY f.created_at ASC, f.id ASC"
	if sort == domain.SortVotes {
		order = " ORDER BY vote_count DESC, f.id ASC"
	}

	rows, err := r.pool.Query(ctx, featureSelect+order+" LIMIT $1 OFFSET $2", limit, offset)
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
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM features").Scan(&n); err != nil {
		return 0, fmt.Errorf("count features: %w", err)
	}
	return n, nil
}
