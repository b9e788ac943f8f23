package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/scorecard/internal/domain/model"
)

// ResultsDependencies exposes results, progress, selections and exports.
type ResultsDependencies interface {
	LeaderboardDependencies
	RankDependencies

	EvaluatorProgress(ctx context.Context, evaluatorID string) (model.EvaluatorProgress, error)
	AllEvaluatorProgress(ctx context.Context) ([]model.EvaluatorProgress, error)

	SelectionGroups(ctx context.Context) (model.SelectionState, error)
	ApplySelection(ctx context.Context, candidateID string, selected bool) (model.SelectionState, error)
	FinalSelected(ctx context.Context) ([]model.SelectionEntry, error)
	ResetSelectionsToSuggestion(ctx context.Context) (model.SelectionState, error)

	ExportResultsCSV(ctx context.Context, w io.Writer) error
	RenderResultsReport(ctx context.Context, w io.Writer) error
}

// ResultsHandler handles results, progress and selection requests.
type ResultsHandler struct {
	deps ResultsDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultsDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

type selectionRequest struct {
	CandidateID string `json:"candidate_id"`
	Selected    *bool  `json:"selected"`
}

// HandleAllProgress handles GET /progress requests.
func (h *ResultsHandler) HandleAllProgress(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.AllEvaluatorProgress(r.Context())
	if err != nil {
		fail(w, r, "api.all_progress", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

// HandleProgress handles GET /progress/{evaluator_id} requests. Evaluators
// may only read their own progress.
func (h *ResultsHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	const op = "api.progress"
	id, err := actingEvaluator(r, r.PathValue("evaluator_id"))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	p, err := h.deps.EvaluatorProgress(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleSelections handles GET /selections requests.
func (h *ResultsHandler) HandleSelections(w http.ResponseWriter, r *http.Request) {
	state, err := h.deps.SelectionGroups(r.Context())
	if err != nil {
		fail(w, r, "api.selections", err)
		return
	}
	writeJSON(w, http.StatusOK, withGroups(state))
}

// HandleApplySelection handles PUT /selections requests.
func (h *ResultsHandler) HandleApplySelection(w http.ResponseWriter, r *http.Request) {
	const op = "api.apply_selection"
	var req selectionRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	if strings.TrimSpace(req.CandidateID) == "" || req.Selected == nil {
		fail(w, r, op, fmt.Errorf("candidate_id and selected required: %w", ErrBadRequest))
		return
	}
	state, err := h.deps.ApplySelection(r.Context(), strings.TrimSpace(req.CandidateID), *req.Selected)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, withGroups(state))
}

// HandleFinalSelections handles GET /selections/final requests.
func (h *ResultsHandler) HandleFinalSelections(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.FinalSelected(r.Context())
	if err != nil {
		fail(w, r, "api.final_selections", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

// HandleResetSelections handles POST /selections/reset requests.
func (h *ResultsHandler) HandleResetSelections(w http.ResponseWriter, r *http.Request) {
	state, err := h.deps.ResetSelectionsToSuggestion(r.Context())
	if err != nil {
		fail(w, r, "api.reset_selections", err)
		return
	}
	writeJSON(w, http.StatusOK, withGroups(state))
}

// HandleExportCSV handles GET /export/results.csv requests.
func (h *ResultsHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.deps.ExportResultsCSV(r.Context(), &buf); err != nil {
		fail(w, r, "api.export_csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
	_, _ = buf.WriteTo(w)
}

// HandleReport handles GET /reports/results requests with a printable page.
func (h *ResultsHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.deps.RenderResultsReport(r.Context(), &buf); err != nil {
		fail(w, r, "api.report", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func withGroups(s model.SelectionState) model.SelectionState {
	s.Groups = orEmpty(s.Groups)
	return s
}
