package api

import (
	"context"
	"net/http"

	"github.com/okian/scorecard/internal/domain/model"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Rank(ctx context.Context, candidateID string) (model.CandidateResult, error)
}

// HandleGetRank handles GET /rank/{candidate_id} requests.
func (h *ResultsHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	entry, err := h.deps.Rank(r.Context(), r.PathValue("candidate_id"))
	if err != nil {
		fail(w, r, "api.get_rank", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
