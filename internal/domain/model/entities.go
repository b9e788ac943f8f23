// Package model contains domain models passed between layers.
package model

import "time"

// Role distinguishes a chair from an ordinary panel member.
type Role string

// Evaluator roles.
const (
	RoleChair  Role = "chair"
	RoleMember Role = "member"
)

// CategoryType classifies an evaluation category.
type CategoryType string

// Category types.
const (
	CategoryMain     CategoryType = "main"
	CategorySub      CategoryType = "sub"
	CategoryGrouping CategoryType = "grouping"
)

// Candidate is an entity being evaluated. An empty MainCategory or
// SubCategory means the field is absent.
type Candidate struct {
	ID           string    `json:"id"`
	Name         string    `json:"name" validate:"required"`
	Department   string    `json:"department,omitempty"`
	Position     string    `json:"position,omitempty"`
	MainCategory string    `json:"main_category,omitempty"`
	SubCategory  string    `json:"sub_category,omitempty"`
	Active       bool      `json:"active"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// Evaluator scores candidates against rubric items.
type Evaluator struct {
	ID         string    `json:"id"`
	Name       string    `json:"name" validate:"required"`
	Department string    `json:"department,omitempty"`
	Role       Role      `json:"role" validate:"omitempty,oneof=chair member"`
	Active     bool      `json:"active"`
	AccessCode string    `json:"access_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EvaluationCategory groups rubric items.
type EvaluationCategory struct {
	ID        string       `json:"id"`
	Name      string       `json:"name" validate:"required"`
	Type      CategoryType `json:"type" validate:"omitempty,oneof=main sub grouping"`
	SortOrder int          `json:"sort_order"`
	Active    bool         `json:"active"`
}

// EvaluationItem is one scored line of a rubric.
type EvaluationItem struct {
	ID         string  `json:"id"`
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name" validate:"required"`
	MaxScore   float64 `json:"max_score" validate:"gt=0"`
	Weight     float64 `json:"weight" validate:"gte=0"`
	SortOrder  int     `json:"sort_order"`
	Active     bool    `json:"active"`
}

// Score is one evaluator's value for one item of one candidate. At most one
// exists per (EvaluatorID, CandidateID, ItemID); later writes replace it.
type Score struct {
	EvaluatorID string    `json:"evaluator_id"`
	CandidateID string    `json:"candidate_id"`
	ItemID      string    `json:"item_id"`
	Value       float64   `json:"value"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EvaluationSession is one evaluator's pass over one candidate's item set.
// Version is incremented on every submission.
type EvaluationSession struct {
	EvaluatorID string     `json:"evaluator_id"`
	CandidateID string     `json:"candidate_id"`
	TotalScore  float64    `json:"total_score"`
	IsCompleted bool       `json:"is_completed"`
	Version     int        `json:"version"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Template is a stored rubric definition in YAML form.
type Template struct {
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting is a system configuration key/value pair.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
