// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	hashids "github.com/speps/go-hashids"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	eventqueue "github.com/okian/scorecard/internal/adapters/mq/queue"
	workerpool "github.com/okian/scorecard/internal/adapters/mq/worker"
	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/domain/aggregate"
	"github.com/okian/scorecard/internal/domain/dedupe"
	"github.com/okian/scorecard/internal/domain/ingest"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

const (
	defaultWorkerCount      = 2
	defaultQueueSize        = 1024
	defaultDedupeSize       = 50_000
	defaultMaxResultsLimit  = 500
	defaultAccessCodeLength = 6
	defaultSnapshotInterval = 30 * time.Second
	defaultAccessCodeSalt   = "scorecard evaluator access codes"
	shutdownTimeout         = 10 * time.Second
)

// Service implements the API dependencies for the evaluation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	snapshot *repository.SnapshotStore
	deduper  dedupe.Deduper
	queue    atomic.Pointer[eventqueue.InMemoryQueue]
	pool     *workerpool.Pool
	mapper   *ingest.Mapper
	codes    *hashids.HashID
	validate *validator.Validate
	tracer   trace.Tracer

	// sessionLocks serialises read-modify-write cycles per (evaluator, candidate).
	sessionLocks sync.Map

	// Configuration
	workerCount         int
	queueSize           int
	dedupeSize          int
	threshold           float64
	categories          aggregate.CategoryDefaults
	maxResultsLimit     int
	accessCodeSalt      string
	accessCodeMinLength int
	snapshotInterval    time.Duration
	now                 func() time.Time
	newID               func() string

	// State
	started bool
	cancel  context.CancelFunc
	loops   sync.WaitGroup

	logger logger.Logger
}

// New constructs a new Service over store with default configuration.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:               store,
		snapshot:            repository.NewSnapshotStore(),
		mapper:              ingest.NewMapper(),
		validate:            validator.New(),
		tracer:              otel.Tracer("scorecard/service"),
		workerCount:         defaultWorkerCount,
		queueSize:           defaultQueueSize,
		dedupeSize:          defaultDedupeSize,
		threshold:           aggregate.DefaultSelectionThreshold,
		categories:          aggregate.DefaultCategories,
		maxResultsLimit:     defaultMaxResultsLimit,
		accessCodeSalt:      defaultAccessCodeSalt,
		accessCodeMinLength: defaultAccessCodeLength,
		snapshotInterval:    defaultSnapshotInterval,
		now:                 time.Now,
		newID:               uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start initializes and starts the recompute pipeline and publishes the
// first results snapshot.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting evaluation service...")

	hd := hashids.NewData()
	hd.Salt = s.accessCodeSalt
	hd.MinLength = s.accessCodeMinLength
	codes, err := hashids.NewWithData(hd)
	if err != nil {
		return fmt.Errorf("access code generator: %w", err)
	}
	s.codes = codes

	if _, err := s.Recompute(ctx, model.RecomputeRequest{Reason: "start"}); err != nil {
		return fmt.Errorf("initial results: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.queue.Store(q)
	s.pool = workerpool.NewPool(s.workerCount, q, s,
		workerpool.WithLogger(s.logger.Named("worker")))
	s.pool.Start(runCtx)

	if s.snapshotInterval > 0 {
		s.loops.Add(1)
		go s.refreshLoop(runCtx)
	}

	s.started = true
	s.logger.Info(ctx, "evaluation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Float64("threshold", s.threshold),
	)
	return nil
}

// Stop gracefully shuts down the pipeline. The store is left open.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping evaluation service...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancel()
	s.loops.Wait()

	s.started = false
	s.logger.Info(ctx, "evaluation service stopped")
}

// refreshLoop periodically asks for a recompute so that dropped requests heal.
func (s *Service) refreshLoop(ctx context.Context) {
	defer s.loops.Done()
	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueue(ctx, "refresh", "", "")
		}
	}
}

// enqueue asks the worker pool for a recompute. Dropped requests are healed
// by the periodic refresh.
func (s *Service) enqueue(ctx context.Context, reason, evaluatorID, candidateID string) {
	q := s.queue.Load()
	if q == nil {
		return
	}
	r := model.RecomputeRequest{
		Reason:      reason,
		EvaluatorID: evaluatorID,
		CandidateID: candidateID,
		Generation:  s.store.WriteGeneration(),
		At:          s.now(),
	}
	if !q.Enqueue(context.WithoutCancel(ctx), r) {
		s.logger.Debug(ctx, "recompute request dropped", logger.String("reason", reason))
	}
}

// Recompute rebuilds the results from the store and publishes them. It
// returns the store generation the results reflect.
func (s *Service) Recompute(ctx context.Context, r model.RecomputeRequest) (uint64, error) {
	ctx, span := s.tracer.Start(ctx, "Service.Recompute",
		trace.WithAttributes(attribute.String("recompute.reason", r.Reason)))
	defer span.End()

	gen := s.store.WriteGeneration()
	results, err := s.Results(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if !s.snapshot.Publish(gen, results) {
		s.logger.Debug(ctx, "stale results discarded", logger.Any("generation", gen))
	}
	span.SetAttributes(attribute.Int64("recompute.generation", int64(gen)))
	return gen, nil
}

// lockSession serialises writes to one session and returns the unlock func.
func (s *Service) lockSession(evaluatorID, candidateID string) func() {
	v, _ := s.sessionLocks.LoadOrStore(evaluatorID+"\x00"+candidateID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// scopedKey binds a client idempotency key to one operation on one session
// slot, so equal keys from different evaluators or operations never collide.
// An empty client key stays empty.
func scopedKey(op, evaluatorID, candidateID, itemID, key string) string {
	if key == "" {
		return ""
	}
	return strings.Join([]string{op, evaluatorID, candidateID, itemID, key}, "\x00")
}

// claim records a scoped idempotency key and reports whether it was already
// used. Callers hold the session lock from claim until release, so a
// concurrent duplicate waits for the first attempt's outcome.
func (s *Service) claim(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordDuplicateWrite()
		return true
	}
	return false
}

// release forgets a key whose write failed so the client may retry it.
func (s *Service) release(ctx context.Context, key string, err error) {
	if key != "" && err != nil {
		s.deduper.Unrecord(ctx, key)
	}
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// Threshold returns the configured selection threshold.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// MaxResultsLimit returns the largest leaderboard page served.
func (s *Service) MaxResultsLimit() int {
	return s.maxResultsLimit
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	snap := s.snapshot.Current()
	stats := map[string]any{
		"started":            s.started,
		"workerCount":        s.workerCount,
		"queueSize":          s.queueSize,
		"dedupeSize":         s.dedupeSize,
		"idempotencyKeys":    s.deduper.Size(),
		"threshold":          s.threshold,
		"storeGeneration":    s.store.WriteGeneration(),
		"snapshotGeneration": snap.Generation,
		"snapshotCandidates": len(snap.Results),
		"snapshotBuiltAt":    snap.BuiltAt,
	}
	if s.started {
		queueLen := s.queue.Load().Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
