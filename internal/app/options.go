package service

import (
	"time"

	"github.com/okian/scorecard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSelectionThreshold sets the average score at or above which a
// candidate is suggested for selection.
func WithSelectionThreshold(threshold float64) Option {
	return func(s *Service) {
		s.threshold = threshold
	}
}

// WithCategoryDefaults sets the labels used for absent candidate categories.
func WithCategoryDefaults(main, sub string) Option {
	return func(s *Service) {
		if main != "" {
			s.categories.Main = main
		}
		if sub != "" {
			s.categories.Sub = sub
		}
	}
}

// WithMaxResultsLimit caps leaderboard page sizes.
func WithMaxResultsLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxResultsLimit = limit
		}
	}
}

// WithAccessCodes configures evaluator access code generation.
func WithAccessCodes(salt string, minLength int) Option {
	return func(s *Service) {
		s.accessCodeSalt = salt
		if minLength > 0 {
			s.accessCodeMinLength = minLength
		}
	}
}

// WithSnapshotInterval sets how often the results snapshot is refreshed
// regardless of writes. Zero disables the periodic refresh.
func WithSnapshotInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.snapshotInterval = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new entity ids are made.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}
