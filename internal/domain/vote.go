package domain

import (
	"context"
	"time"
)

// Vote is a single user's endorsement of one feature.
type Vote struct {
	ID        int64
	UserID    int64
	FeatureID int64
	CreatedAt time.Time
}

// VoteRepository defines persistence operations for votes.
type VoteRepository interface {
	// Create inserts the vote. The (user_id, feature_id) uniqueness
	// constraint decides duplicates: a violation returns ErrDuplicateVote.
	// A missing feature or user returns ErrNotFound.
	Create(ctx context.Context, vote *Vote) error
	// Delete removes the vote for the pair, returning ErrNotFound when
	// there is none.
	Delete(ctx context.Context, userID, featureID int64) error
	Exists(ctx context.Context, userID, featureID int64) (bool, error)
}
