// Package aggregate turns candidate, evaluator and session snapshots into
// ranked result views.
//
// Every function here is pure: inputs are read-only snapshots, outputs are
// fresh values, and no function returns an error. Absent or non-finite
// numbers count as zero. Callers may invoke these concurrently.
package aggregate

import (
	"math"
	"sort"

	"github.com/okian/scorecard/internal/domain/model"
)

// DefaultSelectionThreshold is the average score at or above which a
// candidate is suggested for selection.
const DefaultSelectionThreshold = 70.0

const averagePrecision = 10

// Option configures a results computation.
type Option func(*options)

type options struct {
	threshold float64
}

// WithThreshold overrides the selection threshold. Non-finite values are ignored.
func WithThreshold(threshold float64) Option {
	return func(o *options) {
		if !math.IsNaN(threshold) && !math.IsInf(threshold, 0) {
			o.threshold = threshold
		}
	}
}

// ComputeCandidateResults returns one result per input candidate, sorted by
// average score descending with ties kept in input order. Only completed
// sessions count. Callers that want inactive candidates excluded must filter
// them before the call; see ActiveCandidates.
func ComputeCandidateResults(candidates []model.Candidate, sessions []model.EvaluationSession, opts ...Option) []model.CandidateResult {
	o := options{threshold: DefaultSelectionThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	type acc struct {
		sum   float64
		count int
	}
	totals := make(map[string]*acc, len(candidates))
	for _, s := range sessions {
		if !s.IsCompleted {
			continue
		}
		a := totals[s.CandidateID]
		if a == nil {
			a = &acc{}
			totals[s.CandidateID] = a
		}
		a.sum += finite(s.TotalScore)
		a.count++
	}

	results := make([]model.CandidateResult, len(candidates))
	for i, c := range candidates {
		r := model.CandidateResult{
			CandidateID:  c.ID,
			Name:         c.Name,
			Department:   c.Department,
			Position:     c.Position,
			MainCategory: c.MainCategory,
			SubCategory:  c.SubCategory,
		}
		if a := totals[c.ID]; a != nil && a.count > 0 {
			r.SessionCount = a.count
			r.AverageScore = RoundAverage(a.sum / float64(a.count))
			r.Selected = r.AverageScore >= o.threshold
		}
		results[i] = r
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AverageScore > results[j].AverageScore
	})
	assignRanks(results)
	return results
}

// RoundAverage rounds to one decimal place, halves away from zero.
func RoundAverage(v float64) float64 {
	return math.Round(finite(v)*averagePrecision) / averagePrecision
}

// assignRanks gives equal averages the same competition rank (1, 2, 2, 4).
func assignRanks(results []model.CandidateResult) {
	for i := range results {
		if i > 0 && results[i].AverageScore == results[i-1].AverageScore {
			results[i].Rank = results[i-1].Rank
			continue
		}
		results[i].Rank = i + 1
	}
}

// ActiveCandidates returns the active candidates ordered by sort order, keeping
// input order among equal sort orders.
func ActiveCandidates(candidates []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
