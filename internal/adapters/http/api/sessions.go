package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/model"
)

// SessionDependencies records scores and drives session state.
type SessionDependencies interface {
	RecordScore(ctx context.Context, in service.ScoreInput) (model.EvaluationSession, error)
	SubmitSession(ctx context.Context, evaluatorID, candidateID, idempotencyKey string) (model.EvaluationSession, error)
	ReopenSession(ctx context.Context, evaluatorID, candidateID string) (model.EvaluationSession, error)
	Sessions(ctx context.Context, evaluatorID, candidateID string) ([]model.EvaluationSession, error)
	Scores(ctx context.Context, evaluatorID, candidateID string) ([]model.Score, error)
}

// SessionHandler handles score and session requests.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// scoreRequest mirrors the OpenAPI schema for POST /scores.
type scoreRequest struct {
	EvaluatorID string   `json:"evaluator_id"`
	CandidateID string   `json:"candidate_id"`
	ItemID      string   `json:"item_id"`
	Value       *float64 `json:"value"`
}

func (s scoreRequest) validate() error {
	switch {
	case strings.TrimSpace(s.CandidateID) == "":
		return fmt.Errorf("missing candidate_id: %w", ErrBadRequest)
	case strings.TrimSpace(s.ItemID) == "":
		return fmt.Errorf("missing item_id: %w", ErrBadRequest)
	case s.Value == nil:
		return fmt.Errorf("missing value: %w", ErrBadRequest)
	}
	return nil
}

// sessionRequest names one (evaluator, candidate) session.
type sessionRequest struct {
	EvaluatorID string `json:"evaluator_id"`
	CandidateID string `json:"candidate_id"`
}

// HandleRecordScore handles POST /scores requests.
func (h *SessionHandler) HandleRecordScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_score"
	var req scoreRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	if err := req.validate(); err != nil {
		fail(w, r, op, err)
		return
	}
	evaluatorID, err := actingEvaluator(r, strings.TrimSpace(req.EvaluatorID))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	se, err := h.deps.RecordScore(r.Context(), service.ScoreInput{
		EvaluatorID:    evaluatorID,
		CandidateID:    strings.TrimSpace(req.CandidateID),
		ItemID:         strings.TrimSpace(req.ItemID),
		Value:          *req.Value,
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, se)
}

// HandleListScores handles GET /scores?evaluator_id=&candidate_id= requests.
// Evaluators only see their own scores.
func (h *SessionHandler) HandleListScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_scores"
	evaluatorID, candidateID, err := sessionFilter(r)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	list, err := h.deps.Scores(r.Context(), evaluatorID, candidateID)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

// HandleListSessions handles GET /sessions?evaluator_id=&candidate_id=
// requests. Evaluators only see their own sessions.
func (h *SessionHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sessions"
	evaluatorID, candidateID, err := sessionFilter(r)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	list, err := h.deps.Sessions(r.Context(), evaluatorID, candidateID)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

// HandleSubmit handles POST /sessions/submit requests.
func (h *SessionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_session"
	var req sessionRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	if strings.TrimSpace(req.CandidateID) == "" {
		fail(w, r, op, fmt.Errorf("missing candidate_id: %w", ErrBadRequest))
		return
	}
	evaluatorID, err := actingEvaluator(r, strings.TrimSpace(req.EvaluatorID))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	se, err := h.deps.SubmitSession(r.Context(), evaluatorID, strings.TrimSpace(req.CandidateID), r.Header.Get(HeaderIdempotencyKey))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, se)
}

// HandleReopen handles POST /sessions/reopen requests.
func (h *SessionHandler) HandleReopen(w http.ResponseWriter, r *http.Request) {
	const op = "api.reopen_session"
	var req sessionRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	if req.EvaluatorID == "" || req.CandidateID == "" {
		fail(w, r, op, fmt.Errorf("evaluator_id and candidate_id required: %w", ErrBadRequest))
		return
	}
	se, err := h.deps.ReopenSession(r.Context(), req.EvaluatorID, req.CandidateID)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, se)
}

// sessionFilter reads the evaluator and candidate filters, pinning the
// evaluator filter to the caller when the caller is an evaluator.
func sessionFilter(r *http.Request) (string, string, error) {
	q := r.URL.Query()
	evaluatorID := q.Get("evaluator_id")
	if p := principalFrom(r.Context()); p.evaluator != nil {
		id, err := actingEvaluator(r, evaluatorID)
		if err != nil {
			return "", "", err
		}
		evaluatorID = id
	}
	return evaluatorID, q.Get("candidate_id"), nil
}
