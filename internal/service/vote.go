package service

import (
	"context"
	"fmt"

	"github.com/msomdec/featurevote/internal/domain"
)

// VoteService is the ledger of votes. For every (user, feature) pair it
// allows exactly two transitions: cast (unvoted to voted) and retract
// (voted to unvoted).
type VoteService struct {
	features domain.FeatureRepository
	votes    domain.VoteRepository
}

// NewVoteService creates a new VoteService.
func NewVoteService(features domain.FeatureRepository, votes domain.VoteRepository) *VoteService {
	return &VoteService{features: features, votes: votes}
}

// Cast records voter's vote on featureID.
//
// It returns domain.ErrNotFound when the feature does not exist,
// domain.ErrSelfVote when voter authored it, and domain.ErrDuplicateVote
// when the pair already has a vote. Duplicates are decided by the store's
// unique constraint at insert time, so concurrent casts for one pair
// produce exactly one vote.
func (s *VoteService) Cast(ctx context.Context, voter *domain.User, featureID int64) (*domain.Vote, error) {
	feature, err := s.features.GetByID(ctx, featureID)
	if err != nil {
		return nil, err
	}
	if feature.AuthorID == voter.ID {
		return nil, domain.ErrSelfVote
	}

	vote := &domain.Vote{UserID: voter.ID, FeatureID: feature.ID}
	if err := s.votes.Create(ctx, vote); err != nil {
		return nil, fmt.Errorf("cast vote: %w", err)
	}
	return vote, nil
}

// Retract removes voter's vote on featureID, or returns domain.ErrNotFound
// when there is none.
func (s *VoteService) Retract(ctx context.Context, voter *domain.User, featureID int64) error {
	if err := s.votes.Delete(ctx, voter.ID, featureID); err != nil {
		return fmt.Errorf("retract vote: %w", err)
	}
	return nil
}

// HasVoted reports whether userID currently has a vote on featureID.
func (s *VoteService) HasVoted(ctx context.Context, userID, featureID int64) (bool, error) {
	return s.votes.Exists(ctx, userID, featureID)
}
