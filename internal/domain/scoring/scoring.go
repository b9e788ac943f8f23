// Package scoring computes per-session figures from an evaluator's item scores.
package scoring

import (
	"math"

	"github.com/okian/scorecard/internal/domain/model"
)

// totalPrecision keeps session totals to two decimals so repeated float
// additions do not leak noise into stored rows.
const totalPrecision = 100

// Clamp bounds value into [0, maxScore]. NaN and non-positive maxima yield 0.
func Clamp(value, maxScore float64) float64 {
	if math.IsNaN(value) || math.IsNaN(maxScore) || maxScore <= 0 {
		return 0
	}
	return math.Max(0, math.Min(maxScore, value))
}

// Sheet is one evaluator's score sheet for one candidate.
type Sheet struct {
	Items  []model.EvaluationItem
	Scores []model.Score
}

// NewSheet builds a Sheet keeping only active items.
func NewSheet(items []model.EvaluationItem, scores []model.Score) Sheet {
	active := make([]model.EvaluationItem, 0, len(items))
	for _, it := range items {
		if it.Active {
			active = append(active, it)
		}
	}
	return Sheet{Items: active, Scores: scores}
}

func (s Sheet) byItem() map[string]float64 {
	m := make(map[string]float64, len(s.Scores))
	for _, sc := range s.Scores {
		m[sc.ItemID] = sc.Value
	}
	return m
}

// Total returns the weighted sum of clamped scores over the sheet's items.
// Unscored items contribute nothing.
func (s Sheet) Total() float64 {
	values := s.byItem()
	var total float64
	for _, it := range s.Items {
		v, ok := values[it.ID]
		if !ok {
			continue
		}
		w := it.Weight
		if math.IsNaN(w) || w < 0 {
			w = 0
		}
		total += Clamp(v, it.MaxScore) * w
	}
	return math.Round(total*totalPrecision) / totalPrecision
}

// MaxTotal returns the best achievable total for the sheet's items.
func (s Sheet) MaxTotal() float64 {
	var total float64
	for _, it := range s.Items {
		if it.MaxScore > 0 && it.Weight > 0 {
			total += it.MaxScore * it.Weight
		}
	}
	return total
}

// Missing returns ids of items without a score, in item order.
func (s Sheet) Missing() []string {
	values := s.byItem()
	var missing []string
	for _, it := range s.Items {
		if _, ok := values[it.ID]; !ok {
			missing = append(missing, it.ID)
		}
	}
	return missing
}

// Complete reports whether every item has a score.
func (s Sheet) Complete() bool {
	return len(s.Missing()) == 0
}
