package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/msomdec/featurevote/internal/domain"
)

// FeatureService owns feature records and their listing.
type FeatureService struct {
	features domain.FeatureRepository
}

// NewFeatureService creates a new FeatureService.
func NewFeatureService(features domain.FeatureRepository) *FeatureService {
	return &FeatureService{features: features}
}

// Create stores a new feature authored by author. The returned feature
// carries its author snapshot and a vote count of zero.
func (s *FeatureService) Create(ctx context.Context, author *domain.User, title string, description *string) (*domain.Feature, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.Invalid("title", "title is required")
	}

	feature := &domain.Feature{
		Title:       title,
		Description: description,
		AuthorID:    author.ID,
	}
	if err := s.features.Create(ctx, feature); err != nil {
		return nil, fmt.Errorf("create feature: %w", err)
	}
	return feature, nil
}

// Get returns a feature by ID, or domain.ErrNotFound.
func (s *FeatureService) Get(ctx context.Context, id int64) (*domain.Feature, error) {
	return s.features.GetByID(ctx, id)
}

// ListFeaturesParams selects one page of features. Page is 1-based.
type ListFeaturesParams struct {
	Page  int
	Limit int
	Sort  domain.FeatureSort
}

// FeaturePage is one page of a feature listing.
type FeaturePage struct {
	Items []domain.Feature
	Total int
	Page  int
	Limit int
	Pages int
}

// List returns the requested page and the total feature count.
func (s *FeatureService) List(ctx context.Context, p ListFeaturesParams) (*FeaturePage, error) {
	if p.Page < 1 {
		return nil, domain.Invalid("page", "page must be at least 1")
	}
	if p.Limit < domain.MinPageLimit || p.Limit > domain.MaxPageLimit {
		return nil, domain.Invalid("limit", fmt.Sprintf("limit must be between %d and %d", domain.MinPageLimit, domain.MaxPageLimit))
	}
	switch p.Sort {
	case "":
		p.Sort = domain.SortCreated
	case domain.SortCreated, domain.SortVotes:
	default:
		return nil, domain.Invalid("sort", "sort must be one of: created, votes")
	}

	total, err := s.features.Count(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.features.List(ctx, p.Sort, p.Limit, (p.Page-1)*p.Limit)
	if err != nil {
		return nil, err
	}

	return &FeaturePage{
		Items: items,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: (total + p.Limit - 1) / p.Limit,
	}, nil
}
