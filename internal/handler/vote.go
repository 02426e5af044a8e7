package handler

import (
	"errors"
	"net/http"

	"github.com/msomdec/featurevote/internal/domain"
	"github.com/msomdec/featurevote/internal/metrics"
	"github.com/msomdec/featurevote/internal/service"
)

// VoteHandler handles casting and retracting votes.
type VoteHandler struct {
	votes   *service.VoteService
	metrics *metrics.Metrics
}

// NewVoteHandler creates a new VoteHandler.
func NewVoteHandler(votes *service.VoteService, m *metrics.Metrics) *VoteHandler {
	return &VoteHandler{votes: votes, metrics: m}
}

// HandleCast records the current user's vote.
// POST /votes/
// Request:  {"feature_id":1}
// Response: {"id":1,"user_id":2,"feature_id":1,"created_at":"..."}
func (h *VoteHandler) HandleCast(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		FeatureID *int64 `json:"feature_id"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if req.FeatureID == nil {
		writeValidationError(w, "feature_id", "feature_id is required")
		return
	}

	vote, err := h.votes.Cast(r.Context(), user, *req.FeatureID)
	if err != nil {
		h.countFailure(err)
		writeServiceError(w, r, err, "Feature not found")
		return
	}

	h.metrics.VoteOutcome(metrics.VoteCast)
	writeJSON(w, http.StatusOK, toVoteDTO(vote))
}

// HandleRetract removes the current user's vote.
// DELETE /votes/{feature_id}
// Response: {"message":"Vote removed successfully"}
func (h *VoteHandler) HandleRetract(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	featureID, ok := pathID(w, r, "feature_id", "feature_id")
	if !ok {
		return
	}

	if err := h.votes.Retract(r.Context(), user, featureID); err != nil {
		h.countFailure(err)
		writeServiceError(w, r, err, "Vote not found")
		return
	}

	h.metrics.VoteOutcome(metrics.VoteRetracted)
	writeJSON(w, http.StatusOK, messageDTO{Message: "Vote removed successfully"})
}

func (h *VoteHandler) countFailure(err error) {
	switch {
	case errors.Is(err, domain.ErrSelfVote):
		h.metrics.VoteOutcome(metrics.VoteSelf)
	case errors.Is(err, domain.ErrDuplicateVote):
		h.metrics.VoteOutcome(metrics.VoteDuplicate)
	case errors.Is(err, domain.ErrNotFound):
		h.metrics.VoteOutcome(metrics.VoteNotFound)
	}
}
