package model

import "time"

// CandidateResult is the derived, non-persisted aggregate for one candidate.
type CandidateResult struct {
	Rank         int     `json:"rank"`
	CandidateID  string  `json:"candidate_id"`
	Name         string  `json:"name"`
	Department   string  `json:"department,omitempty"`
	Position     string  `json:"position,omitempty"`
	MainCategory string  `json:"main_category,omitempty"`
	SubCategory  string  `json:"sub_category,omitempty"`
	AverageScore float64 `json:"average_score"`
	SessionCount int     `json:"session_count"`
	Selected     bool    `json:"selected"`
}

// EvaluatorProgress is the derived completion state of one evaluator.
type EvaluatorProgress struct {
	EvaluatorID     string  `json:"evaluator_id"`
	Name            string  `json:"name"`
	CompletedCount  int     `json:"completed_count"`
	TotalCount      int     `json:"total_count"`
	ProgressPercent float64 `json:"progress_percent"`
}

// SelectionEntry is the admin-curated selection flag of one candidate.
type SelectionEntry struct {
	CandidateID  string `json:"candidate_id"`
	MainCategory string `json:"main_category"`
	SubCategory  string `json:"sub_category"`
	Selected     bool   `json:"selected"`
}

// SelectionGroup holds the entries of one (main, sub) category pair.
type SelectionGroup struct {
	Key          string           `json:"key"`
	MainCategory string           `json:"main_category"`
	SubCategory  string           `json:"sub_category"`
	Entries      []SelectionEntry `json:"entries"`
}

// SelectionState is the full final-selection state, one group per category
// pair in first-seen order.
type SelectionState struct {
	Groups []SelectionGroup `json:"groups"`
}

// RecomputeRequest asks the worker pool to refresh the results snapshot.
type RecomputeRequest struct {
	Reason      string    // what changed, e.g. "score", "submit"
	EvaluatorID string    // optional
	CandidateID string    // optional
	Generation  uint64    // store write generation observed at enqueue time
	At          time.Time // enqueue time
}
