package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/msomdec/featurevote/internal/domain"
)

// voteRepo implements domain.VoteRepository using SQLite.
type voteRepo struct {
	db *sql.DB
}

func (r *voteRepo) Create(ctx context.Context, vote *domain.Vote) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO votes (user_id, feature_id, created_at) VALUES (?, ?, ?)`,
		vote.UserID, vote.FeatureID, now,
	)
	if err != nil {
		switch {
		case isUniqueConstraintError(err):
			return domain.ErrDuplicateVote
		case isForeignKeyError(err):
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert vote: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get vote id: %w", err)
	}
	vote.ID = id
	vote.CreatedAt = now
	return nil
}

func (r *voteRepo) Delete(ctx context.Context, userID, featureID int64) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM votes WHERE user_id = ? AND feature_id = ?", userID, featureID)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *voteRepo) Exists(ctx context.Context, userID, featureID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM votes WHERE user_id = ? AND feature_id = ?)", userID, featureID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("vote exists: %w", err)
	}
	return exists, nil
}
