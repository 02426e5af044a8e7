package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/msomdec/featurevote/internal/domain"
	"github.com/msomdec/featurevote/internal/service"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// FeatureHandler handles the feature registry endpoints.
type FeatureHandler struct {
	features *service.FeatureService
	votes    *service.VoteService
}

// NewFeatureHandler creates a new FeatureHandler.
func NewFeatureHandler(features *service.FeatureService, votes *service.VoteService) *FeatureHandler {
	return &FeatureHandler{features: features, votes: votes}
}

// HandleCreate stores a feature authored by the current user.
// POST /features/
// Request:  {"title":"...","description":"..."}
func (h *FeatureHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	feature, err := h.features.Create(r.Context(), user, req.Title, req.Description)
	if err != nil {
		writeServiceError(w, r, err, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, toFeatureDTO(feature))
}

// HandleList returns one page of features.
// GET /features/?page=1&limit=10&sort=created
func (h *FeatureHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, ok := queryInt(w, q.Get("page"), "page", defaultPage)
	if !ok {
		return
	}
	limit, ok := queryInt(w, q.Get("limit"), "limit", defaultLimit)
	if !ok {
		return
	}

	result, err := h.features.List(r.Context(), service.ListFeaturesParams{
		Page:  page,
		Limit: limit,
		Sort:  domain.FeatureSort(strings.ToLower(q.Get("sort"))),
	})
	if err != nil {
		writeServiceError(w, r, err, "Feature not found")
		return
	}
	writeJSON(w, http.StatusOK, toFeaturePageDTO(result))
}

// HandleGet returns a single feature. With a valid bearer token the reply
// also says whether the caller has voted for it.
// GET /features/{id}
func (h *FeatureHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "feature_id")
	if !ok {
		return
	}

	feature, err := h.features.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Feature not found")
		return
	}

	dto := toFeatureDTO(feature)
	if user := UserFromContext(r.Context()); user != nil {
		voted, err := h.votes.HasVoted(r.Context(), user.ID, feature.ID)
		if err != nil {
			writeServiceError(w, r, err, "Feature not found")
			return
		}
		dto.HasVoted = &voted
	}
	writeJSON(w, http.StatusOK, dto)
}

// queryInt parses an optional integer query value, writing a 422 when it
// is malformed.
func queryInt(w http.ResponseWriter, raw, field string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeValidationError(w, field, field+" must be an integer")
		return 0, false
	}
	return n, true
}

// pathID parses a positive integer path value, writing a 422 when it is
// malformed.
func pathID(w http.ResponseWriter, r *http.Request, name, field string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeValidationError(w, field, field+" must be an integer")
		return 0, false
	}
	return id, true
}
