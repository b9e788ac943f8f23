package api

import (
	"context"
	"net/http"
)

// StatsProvider reports pipeline counters and store reachability.
type StatsProvider interface {
	GetStats() map[string]any
	Ping(ctx context.Context) error
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	deps StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps StatsProvider) *StatsHandler {
	return &StatsHandler{deps: deps}
}

// HandleStats reports service counters plus a "store" entry, "ok" or the
// ping error. An unreachable store turns the response into a 503 so probes
// can tell a degraded instance apart.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.deps.GetStats()
	status := http.StatusOK
	stats["store"] = "ok"
	if err := h.deps.Ping(r.Context()); err != nil {
		stats["store"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, stats)
}
