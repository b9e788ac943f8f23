package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/scoring"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// ScoreInput is one item score written by an evaluator.
type ScoreInput struct {
	EvaluatorID    string  `validate:"required"`
	CandidateID    string  `validate:"required"`
	ItemID         string  `validate:"required"`
	Value          float64 `validate:"-"`
	IdempotencyKey string  `validate:"-"`
}

// RecordScore stores one item score, replacing any earlier value, and
// refreshes the session's draft total. The value is clamped into
// [0, item max score]. Scores cannot change once the session is submitted.
func (s *Service) RecordScore(ctx context.Context, in ScoreInput) (model.EvaluationSession, error) {
	ctx, span := s.tracer.Start(ctx, "Service.RecordScore", trace.WithAttributes(
		attribute.String("evaluator.id", in.EvaluatorID),
		attribute.String("candidate.id", in.CandidateID),
		attribute.String("item.id", in.ItemID),
	))
	defer span.End()

	if err := s.check(in); err != nil {
		return model.EvaluationSession{}, err
	}

	key := scopedKey("score", in.EvaluatorID, in.CandidateID, in.ItemID, in.IdempotencyKey)
	unlock := s.lockSession(in.EvaluatorID, in.CandidateID)
	if s.claim(ctx, key) {
		defer unlock()
		return s.currentSession(ctx, in.EvaluatorID, in.CandidateID)
	}
	se, err := s.recordScore(ctx, in)
	s.release(ctx, key, err)
	unlock()
	if err != nil {
		span.RecordError(err)
		return model.EvaluationSession{}, err
	}
	metrics.RecordScoreRecorded()
	s.enqueue(ctx, "score", in.EvaluatorID, in.CandidateID)
	return se, nil
}

// recordScore runs with the session lock held.
func (s *Service) recordScore(ctx context.Context, in ScoreInput) (model.EvaluationSession, error) {
	if err := s.checkParticipants(ctx, in.EvaluatorID, in.CandidateID); err != nil {
		return model.EvaluationSession{}, err
	}
	item, err := s.store.GetItem(ctx, in.ItemID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.EvaluationSession{}, invalid("unknown item %q", in.ItemID)
	}
	if err != nil {
		return model.EvaluationSession{}, err
	}
	if !item.Active {
		return model.EvaluationSession{}, invalid("item %q is inactive", in.ItemID)
	}

	se, err := s.loadSession(ctx, in.EvaluatorID, in.CandidateID)
	if err != nil {
		return model.EvaluationSession{}, err
	}
	if se.IsCompleted {
		return se, fmt.Errorf("session %s/%s: %w", in.EvaluatorID, in.CandidateID, ErrSessionCompleted)
	}

	value := scoring.Clamp(in.Value, item.MaxScore)
	if value != in.Value {
		metrics.RecordScoreClamped()
		s.logger.Debug(ctx, "score clamped",
			logger.String("item_id", item.ID),
			logger.Float64("value", in.Value),
			logger.Float64("max_score", item.MaxScore),
		)
	}
	now := s.now().UTC()
	if err := s.store.UpsertScore(ctx, model.Score{
		EvaluatorID: in.EvaluatorID,
		CandidateID: in.CandidateID,
		ItemID:      in.ItemID,
		Value:       value,
		UpdatedAt:   now,
	}); err != nil {
		return model.EvaluationSession{}, err
	}

	sheet, err := s.sheet(ctx, in.EvaluatorID, in.CandidateID)
	if err != nil {
		return model.EvaluationSession{}, err
	}
	se.TotalScore = sheet.Total()
	se.UpdatedAt = now
	if err := s.store.SaveSession(ctx, se); err != nil {
		return model.EvaluationSession{}, err
	}
	return se, nil
}

// SubmitSession completes a session. Every active item must be scored; the
// stored total is the weighted sum of clamped scores and the version
// increases by one.
func (s *Service) SubmitSession(ctx context.Context, evaluatorID, candidateID, idempotencyKey string) (model.EvaluationSession, error) {
	ctx, span := s.tracer.Start(ctx, "Service.SubmitSession", trace.WithAttributes(
		attribute.String("evaluator.id", evaluatorID),
		attribute.String("candidate.id", candidateID),
	))
	defer span.End()

	if evaluatorID == "" || candidateID == "" {
		return model.EvaluationSession{}, invalid("evaluator_id and candidate_id are required")
	}

	key := scopedKey("submit", evaluatorID, candidateID, "", idempotencyKey)
	unlock := s.lockSession(evaluatorID, candidateID)
	if s.claim(ctx, key) {
		defer unlock()
		return s.currentSession(ctx, evaluatorID, candidateID)
	}
	se, err := s.submit(ctx, evaluatorID, candidateID)
	s.release(ctx, key, err)
	unlock()
	if err != nil {
		span.RecordError(err)
		return model.EvaluationSession{}, err
	}
	metrics.RecordSessionSubmitted()
	span.SetAttributes(attribute.Float64("session.total", se.TotalScore), attribute.Int("session.version", se.Version))
	s.logger.Info(ctx, "session submitted",
		logger.String("evaluator_id", evaluatorID),
		logger.String("candidate_id", candidateID),
		logger.Float64("total", se.TotalScore),
		logger.Int("version", se.Version),
	)
	s.enqueue(ctx, "submit", evaluatorID, candidateID)
	return se, nil
}

// submit runs with the session lock held.
func (s *Service) submit(ctx context.Context, evaluatorID, candidateID string) (model.EvaluationSession, error) {
	if err := s.checkParticipants(ctx, evaluatorID, candidateID); err != nil {
		return model.EvaluationSession{}, err
	}

	se, err := s.loadSession(ctx, evaluatorID, candidateID)
	if err != nil {
		return model.EvaluationSession{}, err
	}
	if se.IsCompleted {
		return se, fmt.Errorf("session %s/%s: %w", evaluatorID, candidateID, ErrSessionCompleted)
	}

	sheet, err := s.sheet(ctx, evaluatorID, candidateID)
	if err != nil {
		return model.EvaluationSession{}, err
	}
	if len(sheet.Items) == 0 {
		return model.EvaluationSession{}, invalid("no active rubric items")
	}
	if missing := sheet.Missing(); len(missing) > 0 {
		return model.EvaluationSession{}, &IncompleteError{EvaluatorID: evaluatorID, CandidateID: candidateID, Missing: missing}
	}

	now := s.now().UTC()
	se.TotalScore = sheet.Total()
	se.IsCompleted = true
	se.Version++
	se.SubmittedAt = &now
	se.UpdatedAt = now
	if err := s.store.SaveSession(ctx, se); err != nil {
		return model.EvaluationSession{}, err
	}
	return se, nil
}

// ReopenSession returns a submitted session to draft so its scores can be
// corrected. Scores are kept; the next submission bumps the version again.
// Reopening a draft session is a no-op.
func (s *Service) ReopenSession(ctx context.Context, evaluatorID, candidateID string) (model.EvaluationSession, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ReopenSession", trace.WithAttributes(
		attribute.String("evaluator.id", evaluatorID),
		attribute.String("candidate.id", candidateID),
	))
	defer span.End()

	unlock := s.lockSession(evaluatorID, candidateID)
	defer unlock()

	se, err := s.store.GetSession(ctx, evaluatorID, candidateID)
	if err != nil {
		return model.EvaluationSession{}, err
	}
	if !se.IsCompleted {
		return se, nil
	}
	se.IsCompleted = false
	se.SubmittedAt = nil
	se.UpdatedAt = s.now().UTC()
	if err := s.store.SaveSession(ctx, se); err != nil {
		span.RecordError(err)
		return model.EvaluationSession{}, err
	}
	metrics.RecordSessionReopened()
	s.logger.Info(ctx, "session reopened",
		logger.String("evaluator_id", evaluatorID),
		logger.String("candidate_id", candidateID),
		logger.Int("version", se.Version),
	)
	s.enqueue(ctx, "reopen", evaluatorID, candidateID)
	return se, nil
}

// Sessions lists sessions filtered by evaluator and candidate; empty means any.
func (s *Service) Sessions(ctx context.Context, evaluatorID, candidateID string) ([]model.EvaluationSession, error) {
	return s.store.ListSessions(ctx, evaluatorID, candidateID)
}

// Scores lists item scores filtered by evaluator and candidate; empty means any.
func (s *Service) Scores(ctx context.Context, evaluatorID, candidateID string) ([]model.Score, error) {
	return s.store.ListScores(ctx, evaluatorID, candidateID)
}

// checkParticipants requires an active evaluator and an active candidate.
func (s *Service) checkParticipants(ctx context.Context, evaluatorID, candidateID string) error {
	ev, err := s.store.GetEvaluator(ctx, evaluatorID)
	if err != nil {
		return err
	}
	if !ev.Active {
		return fmt.Errorf("evaluator %q inactive: %w", evaluatorID, ErrForbidden)
	}
	c, err := s.store.GetCandidate(ctx, candidateID)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("unknown candidate %q", candidateID)
	}
	if err != nil {
		return err
	}
	if !c.Active {
		return invalid("candidate %q is inactive", candidateID)
	}
	return nil
}

// loadSession returns the stored session or a fresh draft.
func (s *Service) loadSession(ctx context.Context, evaluatorID, candidateID string) (model.EvaluationSession, error) {
	se, err := s.store.GetSession(ctx, evaluatorID, candidateID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.EvaluationSession{EvaluatorID: evaluatorID, CandidateID: candidateID}, nil
	}
	return se, err
}

// currentSession answers a replayed write with the session as it stands.
func (s *Service) currentSession(ctx context.Context, evaluatorID, candidateID string) (model.EvaluationSession, error) {
	se, err := s.loadSession(ctx, evaluatorID, candidateID)
	if err != nil {
		return model.EvaluationSession{}, err
	}
	s.logger.Debug(ctx, "duplicate write acknowledged",
		logger.String("evaluator_id", evaluatorID),
		logger.String("candidate_id", candidateID),
	)
	return se, nil
}

func (s *Service) sheet(ctx context.Context, evaluatorID, candidateID string) (scoring.Sheet, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return scoring.Sheet{}, err
	}
	scores, err := s.store.ListScores(ctx, evaluatorID, candidateID)
	if err != nil {
		return scoring.Sheet{}, err
	}
	return scoring.NewSheet(items, scores), nil
}
