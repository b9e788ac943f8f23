package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/scorecard/internal/domain/model"
)

const defaultLeaderboardLimit = 10

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Results(ctx context.Context) ([]model.CandidateResult, error)
	Leaderboard(ctx context.Context, n int) ([]model.CandidateResult, error)
	MaxResultsLimit() int
}

// HandleResults handles GET /results requests with freshly computed results.
func (h *ResultsHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.deps.Results(r.Context())
	if err != nil {
		fail(w, r, "api.results", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(results))
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests, served from
// the last published snapshot.
func (h *ResultsHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	n := defaultLeaderboardLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("limit %q", limitStr)))
			return
		}
	}
	if maxLimit := h.deps.MaxResultsLimit(); n > maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", WrapKind(op, ErrBadRequest, fmt.Errorf("limit above %d", maxLimit)))
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), n)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(entries))
}
