package simulate

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/okian/scorecard/internal/domain/aggregate"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/scoring"
)

// Expected recomputes the ranking the service should publish once every
// planned session is submitted.
func Expected(p Plan) []model.CandidateResult {
	sessions := make([]model.EvaluationSession, 0, len(p.Evaluators)*len(p.Candidates))
	for e := range p.Evaluators {
		for c := range p.Candidates {
			sessions = append(sessions, model.EvaluationSession{
				EvaluatorID: p.Evaluators[e].ID,
				CandidateID: p.Candidates[c].ID,
				TotalScore:  scoring.NewSheet(p.Items, p.Scores[e][c]).Total(),
				IsCompleted: true,
			})
		}
	}
	return aggregate.ComputeCandidateResults(aggregate.ActiveCandidates(p.Candidates), sessions)
}

// rankingLines renders results as one "candidate average sessions" line each,
// keeping only the planned candidates so rows seeded earlier do not interfere.
func rankingLines(results []model.CandidateResult, planned map[string]bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if planned != nil && !planned[r.CandidateID] {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %.1f %d", r.CandidateID, r.AverageScore, r.SessionCount))
	}
	return lines
}

// Diff returns a unified diff of expected against actual ranking, or "" when
// they agree on every planned candidate.
func Diff(p Plan, expected, actual []model.CandidateResult) (string, error) {
	planned := make(map[string]bool, len(p.Candidates))
	for _, c := range p.Candidates {
		planned[c.ID] = true
	}
	want := rankingLines(expected, planned)
	got := rankingLines(actual, planned)
	if strings.Join(want, "\n") == strings.Join(got, "\n") {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.Join(want, "\n") + "\n"),
		B:        difflib.SplitLines(strings.Join(got, "\n") + "\n"),
		FromFile: "expected",
		ToFile:   "published",
		Context:  3,
	})
}
