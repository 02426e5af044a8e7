package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/msomdec/featurevote/internal/domain"
	"github.com/msomdec/featurevote/internal/service"
	"github.com/msomdec/featurevote/internal/view"
)

const rankingSize = 20

// HomeHandler serves the API root.
type HomeHandler struct {
	features *service.FeatureService
}

// NewHomeHandler creates a new HomeHandler.
func NewHomeHandler(features *service.FeatureService) *HomeHandler {
	return &HomeHandler{features: features}
}

// HandleHome returns a JSON welcome message, or the most voted features as
// an HTML page when the client asks for HTML.
// GET /
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Accept"), "text/html") {
		writeJSON(w, http.StatusOK, messageDTO{Message: "Welcome to MetaCTO API"})
		return
	}

	page, err := h.features.List(r.Context(), service.ListFeaturesParams{
		Page:  1,
		Limit: rankingSize,
		Sort:  domain.SortVotes,
	})
	if err != nil {
		slog.Error("list ranking", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.RankingPage(page.Items, page.Total).Render(r.Context(), w); err != nil {
		slog.Error("render ranking", "error", err)
	}
}
