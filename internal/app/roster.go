package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
)

const (
	accessCodeAttempts = 5
	accessCodeSpace    = 1 << 40
)

// ListCandidates returns every candidate, active or not.
func (s *Service) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	return s.store.ListCandidates(ctx)
}

// GetCandidate returns one candidate.
func (s *Service) GetCandidate(ctx context.Context, id string) (model.Candidate, error) {
	return s.store.GetCandidate(ctx, id)
}

// CreateCandidate stores a new candidate. An empty id is generated; an id
// already in use fails with repository.ErrConflict.
func (s *Service) CreateCandidate(ctx context.Context, c model.Candidate) (model.Candidate, error) {
	if err := s.check(c); err != nil {
		return model.Candidate{}, err
	}
	if c.ID == "" {
		c.ID = s.newID()
	} else if _, err := s.store.GetCandidate(ctx, c.ID); err == nil {
		return model.Candidate{}, fmt.Errorf("candidate %q: %w", c.ID, repository.ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Candidate{}, err
	}
	c.CreatedAt = s.now().UTC()
	if err := s.store.UpsertCandidate(ctx, c); err != nil {
		return model.Candidate{}, err
	}
	s.enqueue(ctx, "candidate", "", c.ID)
	return c, nil
}

// UpdateCandidate replaces an existing candidate's fields.
func (s *Service) UpdateCandidate(ctx context.Context, c model.Candidate) (model.Candidate, error) {
	if err := s.check(c); err != nil {
		return model.Candidate{}, err
	}
	cur, err := s.store.GetCandidate(ctx, c.ID)
	if err != nil {
		return model.Candidate{}, err
	}
	c.CreatedAt = cur.CreatedAt
	if err := s.store.UpsertCandidate(ctx, c); err != nil {
		return model.Candidate{}, err
	}
	s.enqueue(ctx, "candidate", "", c.ID)
	return c, nil
}

// DeleteCandidate removes a candidate with its scores, sessions and selections.
func (s *Service) DeleteCandidate(ctx context.Context, id string) error {
	if err := s.store.DeleteCandidate(ctx, id); err != nil {
		return err
	}
	s.enqueue(ctx, "candidate", "", id)
	return nil
}

// ListEvaluators returns every evaluator.
func (s *Service) ListEvaluators(ctx context.Context) ([]model.Evaluator, error) {
	return s.store.ListEvaluators(ctx)
}

// GetEvaluator returns one evaluator.
func (s *Service) GetEvaluator(ctx context.Context, id string) (model.Evaluator, error) {
	return s.store.GetEvaluator(ctx, id)
}

// CreateEvaluator stores a new evaluator with a freshly generated access code.
func (s *Service) CreateEvaluator(ctx context.Context, e model.Evaluator) (model.Evaluator, error) {
	ctx, span := s.tracer.Start(ctx, "Service.CreateEvaluator")
	defer span.End()

	if e.Role == "" {
		e.Role = model.RoleMember
	}
	if err := s.check(e); err != nil {
		return model.Evaluator{}, err
	}
	if e.ID == "" {
		e.ID = s.newID()
	} else if _, err := s.store.GetEvaluator(ctx, e.ID); err == nil {
		return model.Evaluator{}, fmt.Errorf("evaluator %q: %w", e.ID, repository.ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Evaluator{}, err
	}
	e.CreatedAt = s.now().UTC()
	if err := s.saveWithNewCode(ctx, &e); err != nil {
		span.RecordError(err)
		return model.Evaluator{}, err
	}
	span.SetAttributes(attribute.String("evaluator.id", e.ID))
	s.logger.Info(ctx, "evaluator created", logger.String("evaluator_id", e.ID), logger.String("role", string(e.Role)))
	return e, nil
}

// UpdateEvaluator replaces an evaluator's fields, keeping its access code.
func (s *Service) UpdateEvaluator(ctx context.Context, e model.Evaluator) (model.Evaluator, error) {
	if e.Role == "" {
		e.Role = model.RoleMember
	}
	if err := s.check(e); err != nil {
		return model.Evaluator{}, err
	}
	cur, err := s.store.GetEvaluator(ctx, e.ID)
	if err != nil {
		return model.Evaluator{}, err
	}
	e.AccessCode = cur.AccessCode
	e.CreatedAt = cur.CreatedAt
	if err := s.store.UpsertEvaluator(ctx, e); err != nil {
		return model.Evaluator{}, err
	}
	s.enqueue(ctx, "evaluator", e.ID, "")
	return e, nil
}

// RotateAccessCode issues a new access code; the old one stops working.
func (s *Service) RotateAccessCode(ctx context.Context, id string) (model.Evaluator, error) {
	e, err := s.store.GetEvaluator(ctx, id)
	if err != nil {
		return model.Evaluator{}, err
	}
	if err := s.saveWithNewCode(ctx, &e); err != nil {
		return model.Evaluator{}, err
	}
	return e, nil
}

// DeleteEvaluator removes an evaluator with its scores and sessions.
func (s *Service) DeleteEvaluator(ctx context.Context, id string) error {
	if err := s.store.DeleteEvaluator(ctx, id); err != nil {
		return err
	}
	s.enqueue(ctx, "evaluator", id, "")
	return nil
}

// saveWithNewCode assigns a random access code and stores e, retrying on the
// rare collision.
func (s *Service) saveWithNewCode(ctx context.Context, e *model.Evaluator) error {
	if s.codes == nil {
		return ErrNotStarted
	}
	var err error
	for attempt := 0; attempt < accessCodeAttempts; attempt++ {
		n, rerr := rand.Int(rand.Reader, big.NewInt(accessCodeSpace))
		if rerr != nil {
			return fmt.Errorf("access code entropy: %w", rerr)
		}
		code, cerr := s.codes.EncodeInt64([]int64{n.Int64()})
		if cerr != nil {
			return fmt.Errorf("encode access code: %w", cerr)
		}
		e.AccessCode = code
		err = s.store.UpsertEvaluator(ctx, *e)
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
	}
	return err
}

// AuthenticateEvaluator resolves an access code to an active evaluator.
func (s *Service) AuthenticateEvaluator(ctx context.Context, code string) (model.Evaluator, error) {
	ctx, span := s.tracer.Start(ctx, "Service.AuthenticateEvaluator")
	defer span.End()

	e, err := s.store.GetEvaluatorByAccessCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Evaluator{}, ErrInvalidAccessCode
	}
	if err != nil {
		span.RecordError(err)
		return model.Evaluator{}, err
	}
	if !e.Active {
		return model.Evaluator{}, fmt.Errorf("evaluator %q inactive: %w", e.ID, ErrForbidden)
	}
	span.SetAttributes(attribute.String("evaluator.id", e.ID))
	return e, nil
}

// SetAssignments replaces the candidates an evaluator must score. Unknown
// candidate ids are rejected.
func (s *Service) SetAssignments(ctx context.Context, evaluatorID string, candidateIDs []string) error {
	ctx, span := s.tracer.Start(ctx, "Service.SetAssignments",
		trace.WithAttributes(attribute.String("evaluator.id", evaluatorID), attribute.Int("candidates", len(candidateIDs))))
	defer span.End()

	if _, err := s.store.GetEvaluator(ctx, evaluatorID); err != nil {
		return err
	}
	for _, id := range candidateIDs {
		if _, err := s.store.GetCandidate(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return invalid("unknown candidate %q", id)
			}
			return err
		}
	}
	return s.store.SetAssignments(ctx, evaluatorID, candidateIDs)
}

// Assignments returns the candidates explicitly assigned to an evaluator.
func (s *Service) Assignments(ctx context.Context, evaluatorID string) ([]string, error) {
	if _, err := s.store.GetEvaluator(ctx, evaluatorID); err != nil {
		return nil, err
	}
	return s.store.ListAssignments(ctx, evaluatorID)
}
