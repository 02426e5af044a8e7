package domain

import (
	"context"
	"time"
)

// Author is the public snapshot of a feature's author. It never carries
// the password hash.
type Author struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}

// Feature is a proposed product feature. VoteCount is computed from the
// votes table on every read and is never stored.
type Feature struct {
	ID          int64
	Title       string
	Description *string
	AuthorID    int64
	Author      Author
	VoteCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FeatureSort selects the ordering of a feature listing.
type FeatureSort string

const (
	// SortCreated orders by creation time, oldest first, ties broken by id.
	SortCreated FeatureSort = "created"
	// SortVotes orders by vote count, highest first, ties broken by id.
	SortVotes FeatureSort = "votes"
)

const (
	MinPageLimit = 1
	MaxPageLimit = 100
)

// FeatureRepository defines persistence operations for features.
type FeatureRepository interface {
	// Create inserts the feature and reloads it with its author and vote
	// count inside one transaction.
	Create(ctx context.Context, feature *Feature) error
	GetByID(ctx context.Context, id int64) (*Feature, error)
	List(ctx context.Context, sort FeatureSort, limit, offset int) ([]Feature, error)
	Count(ctx context.Context) (int, error)
}
