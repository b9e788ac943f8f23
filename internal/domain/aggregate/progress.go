package aggregate

import "github.com/okian/scorecard/internal/domain/model"

// ComputeEvaluatorProgress counts the evaluator's completed sessions against
// the number of assigned candidates. Zero assignments yield 0%.
func ComputeEvaluatorProgress(evaluator model.Evaluator, assignedCandidateIDs []string, sessions []model.EvaluationSession) model.EvaluatorProgress {
	completed := 0
	for _, s := range sessions {
		if s.EvaluatorID == evaluator.ID && s.IsCompleted {
			completed++
		}
	}
	p := model.EvaluatorProgress{
		EvaluatorID:    evaluator.ID,
		Name:           evaluator.Name,
		CompletedCount: completed,
		TotalCount:     len(assignedCandidateIDs),
	}
	if p.TotalCount > 0 {
		p.ProgressPercent = float64(completed) / float64(p.TotalCount) * 100
	}
	return p
}
