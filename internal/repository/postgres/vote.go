package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/msomdec/featurevote/internal/domain"
)

type voteRepo struct {
	pool *pgxpool.Pool
}

func (r *voteRepo) Create(ctx context.Context, vote *domain.Vote) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO votes (user_id, feature_id) VALUES ($1, $2)
		 RETURNING id, created_at`,
		vote.UserID, vote.FeatureID,
	).Scan(&vote.ID, &vote.CreatedAt)
	if err != nil {
		return voteInsertError(err)
	}
	return nil
}

// voteInsertError classifies a failed vote insert. Only the pair constraint
// means a duplicate vote.
func voteInsertError(err error) error {
	if c, ok := uniqueViolation(err); ok && c == "uq_votes_user_feature" {
		return domain.ErrDuplicateVote
	}
	if isForeignKeyViolation(err) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("insert vote: %w", err)
}

func (r *voteRepo) Delete(ctx context.Context, userID, featureID int64) error {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM votes WHERE user_id = $1 AND feature_id = $2", userID, featureID)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *voteRepo) Exists(ctx context.Context, userID, featureID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM votes WHERE user_id = $1 AND feature_id = $2)", userID, featureID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("vote exists: %w", err)
	}
	return exists, nil
}
