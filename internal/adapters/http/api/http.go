// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/pkg/logger"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 10 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AuthDependencies
	RosterDependencies
	RubricDependencies
	SessionDependencies
	ResultsDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	auth     *authenticator
	health   *HealthHandler
	stats    *StatsHandler
	roster   *RosterHandler
	rubric   *RubricHandler
	sessions *SessionHandler
	results  *ResultsHandler
}

// Option configures a Server.
type Option func(*Server)

// WithAdminToken requires "Authorization: Bearer <token>" on admin routes.
// An empty token disables admin authentication.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.auth.adminToken = token
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		auth:     &authenticator{deps: deps},
		health:   NewHealthHandler(),
		stats:    NewStatsHandler(deps),
		roster:   NewRosterHandler(deps),
		rubric:   NewRubricHandler(deps),
		sessions: NewSessionHandler(deps),
		results:  NewResultsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.Handle(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}
	admin, member := s.auth.admin, s.auth.member

	route("GET /healthz", "healthz", s.health.HandleHealth)
	route("GET /stats", "stats", admin(s.stats.HandleStats))
	route("POST /auth/evaluator", "auth", s.roster.HandleAuthenticate)

	route("GET /candidates", "candidates", member(s.roster.HandleListCandidates))
	route("POST /candidates", "candidates", admin(s.roster.HandleCreateCandidate))
	route("POST /candidates/import", "candidates_import", admin(s.roster.HandleImportCandidates))
	route("GET /candidates/{id}", "candidate", member(s.roster.HandleGetCandidate))
	route("PUT /candidates/{id}", "candidate", admin(s.roster.HandleUpdateCandidate))
	route("DELETE /candidates/{id}", "candidate", admin(s.roster.HandleDeleteCandidate))

	route("GET /evaluators", "evaluators", admin(s.roster.HandleListEvaluators))
	route("POST /evaluators", "evaluators", admin(s.roster.HandleCreateEvaluator))
	route("POST /evaluators/import", "evaluators_import", admin(s.roster.HandleImportEvaluators))
	route("GET /evaluators/{id}", "evaluator", admin(s.roster.HandleGetEvaluator))
	route("PUT /evaluators/{id}", "evaluator", admin(s.roster.HandleUpdateEvaluator))
	route("DELETE /evaluators/{id}", "evaluator", admin(s.roster.HandleDeleteEvaluator))
	route("POST /evaluators/{id}/access-code", "evaluator_code", admin(s.roster.HandleRotateAccessCode))
	route("GET /evaluators/{id}/assignments", "assignments", member(s.roster.HandleGetAssignments))
	route("PUT /evaluators/{id}/assignments", "assignments", admin(s.roster.HandleSetAssignments))

	route("GET /categories", "categories", member(s.rubric.HandleListCategories))
	route("POST /categories", "categories", admin(s.rubric.HandleSaveCategory))
	route("DELETE /categories/{id}", "category", admin(s.rubric.HandleDeleteCategory))
	route("GET /items", "items", member(s.rubric.HandleListItems))
	route("POST /items", "items", admin(s.rubric.HandleSaveItem))
	route("DELETE /items/{id}", "item", admin(s.rubric.HandleDeleteItem))
	route("GET /templates", "templates", admin(s.rubric.HandleListTemplates))
	route("POST /templates", "templates", admin(s.rubric.HandleSaveTemplate))
	route("POST /templates/capture", "templates_capture", admin(s.rubric.HandleCaptureTemplate))
	route("GET /templates/{name}", "template", admin(s.rubric.HandleGetTemplate))
	route("POST /templates/{name}/apply", "template_apply", admin(s.rubric.HandleApplyTemplate))
	route("GET /settings", "settings", admin(s.rubric.HandleListSettings))
	route("PUT /settings/{key}", "setting", admin(s.rubric.HandlePutSetting))

	route("POST /scores", "scores", member(s.sessions.HandleRecordScore))
	route("GET /scores", "scores", member(s.sessions.HandleListScores))
	route("GET /sessions", "sessions", member(s.sessions.HandleListSessions))
	route("POST /sessions/submit", "sessions_submit", member(s.sessions.HandleSubmit))
	route("POST /sessions/reopen", "sessions_reopen", admin(s.sessions.HandleReopen))

	route("GET /results", "results", admin(s.results.HandleResults))
	route("GET /leaderboard", "leaderboard", admin(s.results.HandleGetLeaderboard))
	route("GET /rank/{candidate_id}", "rank", admin(s.results.HandleGetRank))
	route("GET /progress", "progress", admin(s.results.HandleAllProgress))
	route("GET /progress/{evaluator_id}", "progress_evaluator", member(s.results.HandleProgress))
	route("GET /selections", "selections", admin(s.results.HandleSelections))
	route("PUT /selections", "selections", admin(s.results.HandleApplySelection))
	route("GET /selections/final", "selections_final", admin(s.results.HandleFinalSelections))
	route("POST /selections/reset", "selections_reset", admin(s.results.HandleResetSelections))
	route("GET /export/results.csv", "export_csv", admin(s.results.HandleExportCSV))
	route("GET /reports/results", "report", admin(s.results.HandleReport))
}

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var inc *service.IncompleteError
	if errors.As(err, &inc) {
		resp.Missing = inc.Missing
	}
	writeJSON(w, status, resp)
}

// fail classifies err and writes the matching envelope. Server errors are
// logged; their details stay out of the response.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("http").Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, Wrap(op, err))
}

// decode reads a JSON body into v. Unknown fields are rejected.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body: %w", ErrBadRequest)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
