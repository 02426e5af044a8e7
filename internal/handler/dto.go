package handler

import (
	"time"

	"github.com/msomdec/featurevote/internal/domain"
	"github.com/msomdec/featurevote/internal/service"
)

// UserDTO is the JSON representation of a user. It never carries the
// password hash.
type UserDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

func toAuthorDTO(a domain.Author) UserDTO {
	return UserDTO{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

// TokenDTO is returned by a successful login.
type TokenDTO struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// FeatureDTO is the JSON representation of a feature.
type FeatureDTO struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	AuthorID    int64   `json:"author_id"`
	CreatedAt   string  `json:"created_at"`
	Author      UserDTO `json:"author"`
	VoteCount   int     `json:"vote_count"`
	HasVoted    *bool   `json:"has_voted,omitempty"`
}

func toFeatureDTO(f *domain.Feature) FeatureDTO {
	return FeatureDTO{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		AuthorID:    f.AuthorID,
		CreatedAt:   f.CreatedAt.Format(time.RFC3339),
		Author:      toAuthorDTO(f.Author),
		VoteCount:   f.VoteCount,
	}
}

func toFeatureDTOs(features []domain.Feature) []FeatureDTO {
	dtos := make([]FeatureDTO, len(features))
	for i := range features {
		dtos[i] = toFeatureDTO(&features[i])
	}
	return dtos
}

// FeaturePageDTO is one page of the feature listing.
type FeaturePageDTO struct {
	Items []FeatureDTO `json:"items"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Pages int          `json:"pages"`
}

func toFeaturePageDTO(p *service.FeaturePage) FeaturePageDTO {
	return FeaturePageDTO{
		Items: toFeatureDTOs(p.Items),
		Total: p.Total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: p.Pages,
	}
}

// VoteDTO is the JSON representation of a vote.
type VoteDTO struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	FeatureID int64  `json:"feature_id"`
	CreatedAt string `json:"created_at"`
}

func toVoteDTO(v *domain.Vote) VoteDTO {
	return VoteDTO{
		ID:        v.ID,
		UserID:    v.UserID,
		FeatureID: v.FeatureID,
		CreatedAt: v.CreatedAt.Format(time.RFC3339),
	}
}

type messageDTO struct {
	Message string `json:"message"`
}
