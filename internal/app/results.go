package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/scorecard/internal/domain/aggregate"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// Results computes fresh results for all active candidates.
func (s *Service) Results(ctx context.Context) ([]model.CandidateResult, error) {
	ctx, span := s.tracer.Start(ctx, "Service.Results")
	defer span.End()

	var candidates []model.Candidate
	var sessions []model.EvaluationSession
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidates, err = s.store.ListCandidates(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sessions, err = s.store.ListSessions(gctx, "", "")
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	start := time.Now()
	results := aggregate.ComputeCandidateResults(
		aggregate.ActiveCandidates(candidates), sessions,
		aggregate.WithThreshold(s.threshold),
	)
	metrics.RecordAggregationLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	span.SetAttributes(attribute.Int("results.count", len(results)))
	return results, nil
}

// Leaderboard returns the top n results of the published snapshot. n is
// capped at the configured maximum.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]model.CandidateResult, error) {
	if n > s.maxResultsLimit {
		n = s.maxResultsLimit
	}
	return s.snapshot.TopN(ctx, n)
}

// Rank returns one candidate's result from the published snapshot.
func (s *Service) Rank(ctx context.Context, candidateID string) (model.CandidateResult, error) {
	return s.snapshot.Rank(ctx, candidateID)
}

// SnapshotGeneration returns the store generation the published results reflect.
func (s *Service) SnapshotGeneration() uint64 {
	return s.snapshot.Current().Generation
}

// EvaluatorProgress reports one evaluator's completion. The evaluator's
// workload is its explicit assignments, or every active candidate when it
// has none.
func (s *Service) EvaluatorProgress(ctx context.Context, evaluatorID string) (model.EvaluatorProgress, error) {
	ctx, span := s.tracer.Start(ctx, "Service.EvaluatorProgress",
		trace.WithAttributes(attribute.String("evaluator.id", evaluatorID)))
	defer span.End()

	ev, err := s.store.GetEvaluator(ctx, evaluatorID)
	if err != nil {
		return model.EvaluatorProgress{}, err
	}
	var candidates []model.Candidate
	var sessions []model.EvaluationSession
	var assigned []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { candidates, err = s.store.ListCandidates(gctx); return })
	g.Go(func() (err error) { sessions, err = s.store.ListSessions(gctx, evaluatorID, ""); return })
	g.Go(func() (err error) { assigned, err = s.store.ListAssignments(gctx, evaluatorID); return })
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return model.EvaluatorProgress{}, err
	}
	return progressOf(ev, aggregate.ActiveCandidates(candidates), assigned, sessions), nil
}

// AllEvaluatorProgress reports the completion of every active evaluator.
func (s *Service) AllEvaluatorProgress(ctx context.Context) ([]model.EvaluatorProgress, error) {
	ctx, span := s.tracer.Start(ctx, "Service.AllEvaluatorProgress")
	defer span.End()

	var evaluators []model.Evaluator
	var candidates []model.Candidate
	var sessions []model.EvaluationSession
	var assignments map[string][]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { evaluators, err = s.store.ListEvaluators(gctx); return })
	g.Go(func() (err error) { candidates, err = s.store.ListCandidates(gctx); return })
	g.Go(func() (err error) { sessions, err = s.store.ListSessions(gctx, "", ""); return })
	g.Go(func() (err error) { assignments, err = s.store.ListAllAssignments(gctx); return })
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	active := aggregate.ActiveCandidates(candidates)
	out := make([]model.EvaluatorProgress, 0, len(evaluators))
	for _, ev := range evaluators {
		if !ev.Active {
			continue
		}
		out = append(out, progressOf(ev, active, assignments[ev.ID], sessions))
	}
	return out, nil
}

// progressOf counts only sessions on the evaluator's current workload, so
// sessions on removed or deactivated candidates do not push progress past 100%.
func progressOf(ev model.Evaluator, active []model.Candidate, assigned []string, sessions []model.EvaluationSession) model.EvaluatorProgress {
	activeIDs := make(map[string]struct{}, len(active))
	for _, c := range active {
		activeIDs[c.ID] = struct{}{}
	}
	var workload []string
	if len(assigned) > 0 {
		for _, id := range assigned {
			if _, ok := activeIDs[id]; ok {
				workload = append(workload, id)
			}
		}
	} else {
		for _, c := range active {
			workload = append(workload, c.ID)
		}
	}

	inScope := make(map[string]struct{}, len(workload))
	for _, id := range workload {
		inScope[id] = struct{}{}
	}
	var relevant []model.EvaluationSession
	for _, se := range sessions {
		if _, ok := inScope[se.CandidateID]; ok && se.EvaluatorID == ev.ID {
			relevant = append(relevant, se)
		}
	}
	return aggregate.ComputeEvaluatorProgress(ev, workload, relevant)
}

// SelectionGroups returns candidates grouped by category pair, each flagged
// with the threshold suggestion unless an administrator curated it.
func (s *Service) SelectionGroups(ctx context.Context) (model.SelectionState, error) {
	results, err := s.Results(ctx)
	if err != nil {
		return model.SelectionState{}, err
	}
	return s.selectionState(ctx, results)
}

func (s *Service) selectionState(ctx context.Context, results []model.CandidateResult) (model.SelectionState, error) {
	curated, err := s.store.ListSelections(ctx)
	if err != nil {
		return model.SelectionState{}, err
	}
	return aggregate.OverlaySelections(aggregate.SuggestSelections(results, s.categories), curated), nil
}

// ApplySelection sets one candidate's final selection flag inside its
// category group and persists it.
func (s *Service) ApplySelection(ctx context.Context, candidateID string, selected bool) (model.SelectionState, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ApplySelection", trace.WithAttributes(
		attribute.String("candidate.id", candidateID),
		attribute.Bool("selected", selected),
	))
	defer span.End()

	c, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return model.SelectionState{}, err
	}
	if !c.Active {
		return model.SelectionState{}, invalid("candidate %q is inactive", candidateID)
	}
	state, err := s.SelectionGroups(ctx)
	if err != nil {
		return model.SelectionState{}, err
	}
	main, sub := s.categories.Pair(c.MainCategory, c.SubCategory)
	next := aggregate.ApplyFinalSelection(state, candidateID, main, sub, selected)

	if err := s.store.SaveSelection(ctx, model.SelectionEntry{
		CandidateID:  candidateID,
		MainCategory: main,
		SubCategory:  sub,
		Selected:     selected,
	}); err != nil {
		span.RecordError(err)
		return model.SelectionState{}, err
	}
	metrics.RecordSelectionChanged()
	s.logger.Info(ctx, "final selection changed",
		logger.String("candidate_id", candidateID),
		logger.String("group", aggregate.CategoryKey(main, sub)),
		logger.Bool("selected", selected),
	)
	s.enqueue(ctx, "selection", "", candidateID)
	return next, nil
}

// FinalSelected returns the selected entries of every group.
func (s *Service) FinalSelected(ctx context.Context) ([]model.SelectionEntry, error) {
	state, err := s.SelectionGroups(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate.FinalSelectedCandidates(state), nil
}

// ResetSelectionsToSuggestion drops all curated flags.
func (s *Service) ResetSelectionsToSuggestion(ctx context.Context) (model.SelectionState, error) {
	if err := s.store.ClearSelections(ctx); err != nil {
		return model.SelectionState{}, err
	}
	metrics.RecordSelectionChanged()
	s.enqueue(ctx, "selection", "", "")
	return s.SelectionGroups(ctx)
}
