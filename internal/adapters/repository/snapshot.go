package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/metrics"
)

// Snapshot is an immutable, ranked view of the results published at a given
// store generation.
type Snapshot struct {
	Generation uint64
	BuiltAt    time.Time
	Results    []model.CandidateResult

	byCandidate map[string]int // candidate id -> index into Results
}

// SnapshotStore holds the latest published results for cheap reads by polling
// clients. Writers publish whole snapshots; readers never block.
type SnapshotStore struct {
	current atomic.Pointer[Snapshot]
}

// NewSnapshotStore returns a store holding an empty generation-0 snapshot.
func NewSnapshotStore() *SnapshotStore {
	s := &SnapshotStore{}
	s.current.Store(&Snapshot{byCandidate: map[string]int{}})
	return s
}

// Publish replaces the current snapshot unless it was computed from an older
// generation than the one already published. It reports whether it replaced.
func (s *SnapshotStore) Publish(generation uint64, results []model.CandidateResult) bool {
	next := &Snapshot{
		Generation:  generation,
		BuiltAt:     time.Now(),
		Results:     append([]model.CandidateResult(nil), results...),
		byCandidate: make(map[string]int, len(results)),
	}
	for i, r := range next.Results {
		next.byCandidate[r.CandidateID] = i
	}

	for {
		cur := s.current.Load()
		if generation < cur.Generation {
			return false
		}
		if s.current.CompareAndSwap(cur, next) {
			metrics.UpdateSnapshotGeneration(generation)
			metrics.UpdateActiveCandidates(len(next.Results))
			return true
		}
	}
}

// Current returns the latest snapshot.
func (s *SnapshotStore) Current() *Snapshot {
	return s.current.Load()
}

// TopN returns up to n leading results of the current snapshot.
func (s *SnapshotStore) TopN(_ context.Context, n int) ([]model.CandidateResult, error) {
	if n <= 0 {
		metrics.RecordErrorByComponent("snapshot", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	snap := s.current.Load()
	if n > len(snap.Results) {
		n = len(snap.Results)
	}
	return append([]model.CandidateResult(nil), snap.Results[:n]...), nil
}

// Rank returns the current result of one candidate.
func (s *SnapshotStore) Rank(_ context.Context, candidateID string) (model.CandidateResult, error) {
	snap := s.current.Load()
	i, ok := snap.byCandidate[candidateID]
	if !ok {
		metrics.RecordErrorByComponent("snapshot", "not_found")
		return model.CandidateResult{}, ErrNotFound
	}
	return snap.Results[i], nil
}

// Count returns the number of candidates in the current snapshot.
func (s *SnapshotStore) Count(context.Context) int {
	return len(s.current.Load().Results)
}
