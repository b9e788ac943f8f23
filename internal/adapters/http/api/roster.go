package api

import (
	"context"
	"io"
	"net/http"
	"strings"

	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/model"
)

// RosterDependencies manages candidates, evaluators and assignments.
type RosterDependencies interface {
	ListCandidates(ctx context.Context) ([]model.Candidate, error)
	GetCandidate(ctx context.Context, id string) (model.Candidate, error)
	CreateCandidate(ctx context.Context, c model.Candidate) (model.Candidate, error)
	UpdateCandidate(ctx context.Context, c model.Candidate) (model.Candidate, error)
	DeleteCandidate(ctx context.Context, id string) error
	ImportCandidates(ctx context.Context, format string, r io.Reader) (service.ImportReport, error)

	ListEvaluators(ctx context.Context) ([]model.Evaluator, error)
	GetEvaluator(ctx context.Context, id string) (model.Evaluator, error)
	CreateEvaluator(ctx context.Context, e model.Evaluator) (model.Evaluator, error)
	UpdateEvaluator(ctx context.Context, e model.Evaluator) (model.Evaluator, error)
	DeleteEvaluator(ctx context.Context, id string) error
	RotateAccessCode(ctx context.Context, id string) (model.Evaluator, error)
	ImportEvaluators(ctx context.Context, format string, r io.Reader) (service.ImportReport, error)
	SetAssignments(ctx context.Context, evaluatorID string, candidateIDs []string) error
	Assignments(ctx context.Context, evaluatorID string) ([]string, error)

	AuthenticateEvaluator(ctx context.Context, code string) (model.Evaluator, error)
}

// RosterHandler handles candidate and evaluator requests.
type RosterHandler struct {
	deps RosterDependencies
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(deps RosterDependencies) *RosterHandler {
	return &RosterHandler{deps: deps}
}

// candidateRequest is the writable shape of a candidate. Active defaults to true.
type candidateRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Department   string `json:"department"`
	Position     string `json:"position"`
	MainCategory string `json:"main_category"`
	SubCategory  string `json:"sub_category"`
	Active       *bool  `json:"active"`
	SortOrder    int    `json:"sort_order"`
}

func (c candidateRequest) model() model.Candidate {
	return model.Candidate{
		ID:           strings.TrimSpace(c.ID),
		Name:         strings.TrimSpace(c.Name),
		Department:   c.Department,
		Position:     c.Position,
		MainCategory: strings.TrimSpace(c.MainCategory),
		SubCategory:  strings.TrimSpace(c.SubCategory),
		Active:       c.Active == nil || *c.Active,
		SortOrder:    c.SortOrder,
	}
}

// evaluatorRequest is the writable shape of an evaluator. Access codes are
// issued by the server and cannot be set.
type evaluatorRequest struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Department string     `json:"department"`
	Role       model.Role `json:"role"`
	Active     *bool      `json:"active"`
}

func (e evaluatorRequest) model() model.Evaluator {
	return model.Evaluator{
		ID:         strings.TrimSpace(e.ID),
		Name:       strings.TrimSpace(e.Name),
		Department: e.Department,
		Role:       e.Role,
		Active:     e.Active == nil || *e.Active,
	}
}

type authRequest struct {
	AccessCode string `json:"access_code"`
}

type authResponse struct {
	Evaluator   model.Evaluator `json:"evaluator"`
	Assignments []string        `json:"assignments"`
}

type assignmentsRequest struct {
	CandidateIDs []string `json:"candidate_ids"`
}

// HandleAuthenticate handles POST /auth/evaluator requests.
func (h *RosterHandler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	const op = "api.authenticate"
	var req authRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	ev, err := h.deps.AuthenticateEvaluator(r.Context(), strings.TrimSpace(req.AccessCode))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	assigned, err := h.deps.Assignments(r.Context(), ev.ID)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Evaluator: ev, Assignments: orEmpty(assigned)})
}

// HandleListCandidates handles GET /candidates requests. Evaluators only see
// active candidates.
func (h *RosterHandler) HandleListCandidates(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListCandidates(r.Context())
	if err != nil {
		fail(w, r, "api.list_candidates", err)
		return
	}
	if principalFrom(r.Context()).evaluator != nil {
		active := list[:0]
		for _, c := range list {
			if c.Active {
				active = append(active, c)
			}
		}
		list = active
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

// HandleGetCandidate handles GET /candidates/{id} requests.
func (h *RosterHandler) HandleGetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.GetCandidate(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, "api.get_candidate", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleCreateCandidate handles POST /candidates requests.
func (h *RosterHandler) HandleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_candidate"
	var req candidateRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	c, err := h.deps.CreateCandidate(r.Context(), req.model())
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleUpdateCandidate handles PUT /candidates/{id} requests.
func (h *RosterHandler) HandleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_candidate"
	var req candidateRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	c := req.model()
	c.ID = r.PathValue("id")
	c, err := h.deps.UpdateCandidate(r.Context(), c)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleDeleteCandidate handles DELETE /candidates/{id} requests.
func (h *RosterHandler) HandleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteCandidate(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, "api.delete_candidate", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleImportCandidates handles POST /candidates/import?format=csv|json.
func (h *RosterHandler) HandleImportCandidates(w http.ResponseWriter, r *http.Request) {
	rep, err := h.deps.ImportCandidates(r.Context(), importFormat(r), http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		fail(w, r, "api.import_candidates", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleListEvaluators handles GET /evaluators requests.
func (h *RosterHandler) HandleListEvaluators(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListEvaluators(r.Context())
	if err != nil {
		fail(w, r, "api.list_evaluators", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

// HandleGetEvaluator handles GET /evaluators/{id} requests.
func (h *RosterHandler) HandleGetEvaluator(w http.ResponseWriter, r *http.Request) {
	ev, err := h.deps.GetEvaluator(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, "api.get_evaluator", err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleCreateEvaluator handles POST /evaluators requests.
func (h *RosterHandler) HandleCreateEvaluator(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_evaluator"
	var req evaluatorRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	ev, err := h.deps.CreateEvaluator(r.Context(), req.model())
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleUpdateEvaluator handles PUT /evaluators/{id} requests.
func (h *RosterHandler) HandleUpdateEvaluator(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_evaluator"
	var req evaluatorRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	ev := req.model()
	ev.ID = r.PathValue("id")
	ev, err := h.deps.UpdateEvaluator(r.Context(), ev)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleDeleteEvaluator handles DELETE /evaluators/{id} requests.
func (h *RosterHandler) HandleDeleteEvaluator(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteEvaluator(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, "api.delete_evaluator", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRotateAccessCode handles POST /evaluators/{id}/access-code requests.
func (h *RosterHandler) HandleRotateAccessCode(w http.ResponseWriter, r *http.Request) {
	ev, err := h.deps.RotateAccessCode(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, "api.rotate_access_code", err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleImportEvaluators handles POST /evaluators/import?format=csv|json.
func (h *RosterHandler) HandleImportEvaluators(w http.ResponseWriter, r *http.Request) {
	rep, err := h.deps.ImportEvaluators(r.Context(), importFormat(r), http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		fail(w, r, "api.import_evaluators", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleGetAssignments handles GET /evaluators/{id}/assignments requests.
func (h *RosterHandler) HandleGetAssignments(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_assignments"
	id, err := actingEvaluator(r, r.PathValue("id"))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	ids, err := h.deps.Assignments(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, assignmentsRequest{CandidateIDs: orEmpty(ids)})
}

// HandleSetAssignments handles PUT /evaluators/{id}/assignments requests.
func (h *RosterHandler) HandleSetAssignments(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_assignments"
	var req assignmentsRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	if err := h.deps.SetAssignments(r.Context(), r.PathValue("id"), req.CandidateIDs); err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, assignmentsRequest{CandidateIDs: orEmpty(req.CandidateIDs)})
}

// importFormat takes ?format= first, then falls back to the content type.
func importFormat(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	if strings.Contains(r.Header.Get("Content-Type"), "json") {
		return service.FormatJSON
	}
	return service.FormatCSV
}

// orEmpty keeps nil slices from encoding as null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
