// Package repository persists evaluation data and serves the published
// results snapshot.
package repository

import (
	"context"

	"github.com/okian/scorecard/internal/domain/model"
)

// Store provides read/write access to the persisted evaluation state.
// Lists are ordered by sort order, then id. Lookups of missing rows return
// ErrNotFound.
type Store interface {
	ListCandidates(ctx context.Context) ([]model.Candidate, error)
	GetCandidate(ctx context.Context, id string) (model.Candidate, error)
	UpsertCandidate(ctx context.Context, c model.Candidate) error
	DeleteCandidate(ctx context.Context, id string) error

	ListEvaluators(ctx context.Context) ([]model.Evaluator, error)
	GetEvaluator(ctx context.Context, id string) (model.Evaluator, error)
	GetEvaluatorByAccessCode(ctx context.Context, code string) (model.Evaluator, error)
	// UpsertEvaluator returns ErrConflict if another evaluator already holds
	// the same non-empty access code.
	UpsertEvaluator(ctx context.Context, e model.Evaluator) error
	DeleteEvaluator(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]model.EvaluationCategory, error)
	UpsertCategory(ctx context.Context, c model.EvaluationCategory) error
	DeleteCategory(ctx context.Context, id string) error

	ListItems(ctx context.Context) ([]model.EvaluationItem, error)
	GetItem(ctx context.Context, id string) (model.EvaluationItem, error)
	UpsertItem(ctx context.Context, it model.EvaluationItem) error
	DeleteItem(ctx context.Context, id string) error

	// UpsertScore replaces any existing value for the same
	// (evaluator, candidate, item).
	UpsertScore(ctx context.Context, s model.Score) error
	// ListScores filters by evaluator and candidate; empty means any.
	ListScores(ctx context.Context, evaluatorID, candidateID string) ([]model.Score, error)

	GetSession(ctx context.Context, evaluatorID, candidateID string) (model.EvaluationSession, error)
	// ListSessions filters by evaluator and candidate; empty means any.
	ListSessions(ctx context.Context, evaluatorID, candidateID string) ([]model.EvaluationSession, error)
	SaveSession(ctx context.Context, s model.EvaluationSession) error

	// SetAssignments replaces the evaluator's assigned candidates.
	SetAssignments(ctx context.Context, evaluatorID string, candidateIDs []string) error
	ListAssignments(ctx context.Context, evaluatorID string) ([]string, error)
	// ListAllAssignments maps each evaluator with assignments to its
	// candidate ids.
	ListAllAssignments(ctx context.Context) (map[string][]string, error)

	// ListSelections returns curated entries in first-written order.
	ListSelections(ctx context.Context) ([]model.SelectionEntry, error)
	SaveSelection(ctx context.Context, e model.SelectionEntry) error
	ClearSelections(ctx context.Context) error

	SaveTemplate(ctx context.Context, t model.Template) error
	GetTemplate(ctx context.Context, name string) (model.Template, error)
	ListTemplates(ctx context.Context) ([]model.Template, error)

	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) ([]model.Setting, error)

	// WriteGeneration increases on every successful mutation.
	WriteGeneration() uint64

	Ping(ctx context.Context) error
	Close() error
}
