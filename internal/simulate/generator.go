package simulate

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/scorecard/internal/domain/model"
)

// Item maxima cycle through these values.
var itemMaxima = []float64{10, 20, 30, 40}

// Category pairs candidates are spread across.
var categoryPairs = [][2]string{
	{"신규", "일시동행"},
	{"신규", "지속동행"},
	{"재참여", "단독"},
}

// Performance bands as fractions of an item's maximum. Each candidate draws
// one band so rankings spread out.
var bands = []struct{ lo, span float64 }{
	{0.3, 0.4}, // average
	{0.7, 0.2}, // high
	{0.0, 0.3}, // low
	{0.9, 0.1}, // elite
	{0.6, 0.2}, // mid-high
	{0.2, 0.2}, // mid-low
	{0.0, 1.0}, // anywhere
}

// Plan is a generated roster, rubric and the scores every evaluator gives.
type Plan struct {
	Items      []model.EvaluationItem
	Candidates []model.Candidate
	Evaluators []model.Evaluator
	// Scores[e][c] holds evaluator e's item scores for candidate c.
	Scores [][][]model.Score

	seed  uint64
	bands []int
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Generate builds a deterministic plan from cfg.Seed. Candidate and evaluator
// ids carry cfg.RunID so repeated runs against one database do not collide;
// item ids are shared so every run scores the same rubric.
func Generate(cfg *Config) Plan {
	rng := newRand(cfg.Seed)
	p := Plan{
		Items:      make([]model.EvaluationItem, cfg.Items),
		Candidates: make([]model.Candidate, cfg.Candidates),
		Evaluators: make([]model.Evaluator, cfg.Evaluators),
		seed:       cfg.Seed,
		bands:      make([]int, cfg.Candidates),
	}
	for i := range p.Items {
		p.Items[i] = model.EvaluationItem{
			ID:        fmt.Sprintf("sim-item-%02d", i+1),
			Name:      fmt.Sprintf("Item %d", i+1),
			MaxScore:  itemMaxima[i%len(itemMaxima)],
			Weight:    1,
			SortOrder: i,
			Active:    true,
		}
	}

	for i := range p.Candidates {
		pair := categoryPairs[i%len(categoryPairs)]
		p.Candidates[i] = model.Candidate{
			ID:           fmt.Sprintf("%s-cand-%04d", cfg.RunID, i+1),
			Name:         fmt.Sprintf("Candidate %d", i+1),
			MainCategory: pair[0],
			SubCategory:  pair[1],
			SortOrder:    i,
			Active:       true,
		}
		p.bands[i] = rng.IntN(len(bands))
	}
	for i := range p.Evaluators {
		p.Evaluators[i] = model.Evaluator{
			ID:     fmt.Sprintf("%s-eval-%03d", cfg.RunID, i+1),
			Name:   fmt.Sprintf("Evaluator %d", i+1),
			Role:   model.RoleMember,
			Active: true,
		}
	}

	p.Score(p.Items)
	return p
}

// Score replaces the plan's items and draws every evaluator's sheet for them.
// The runner calls it again with the service's active items so sheets stay
// complete when the rubric already holds more than the simulator seeded.
func (p *Plan) Score(items []model.EvaluationItem) {
	rng := newRand(p.seed + 1)
	p.Items = items
	p.Scores = make([][][]model.Score, len(p.Evaluators))
	for e, ev := range p.Evaluators {
		p.Scores[e] = make([][]model.Score, len(p.Candidates))
		for c, cand := range p.Candidates {
			b := bands[p.bands[c]]
			sheet := make([]model.Score, 0, len(items))
			for _, it := range items {
				if !it.Active {
					continue
				}
				v := it.MaxScore * (b.lo + rng.Float64()*b.span)
				sheet = append(sheet, model.Score{
					EvaluatorID: ev.ID,
					CandidateID: cand.ID,
					ItemID:      it.ID,
					Value:       math.Round(v*10) / 10,
				})
			}
			p.Scores[e][c] = sheet
		}
	}
}
