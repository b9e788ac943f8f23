package simulate

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
)

// Run executes a complete simulation and returns its statistics. A ranking
// mismatch is reported as ErrMismatch together with the unified diff.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("simulate")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg)

	log.Info(ctx, "starting scorecard simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("runID", cfg.RunID),
		logger.Int("candidates", cfg.Candidates),
		logger.Int("evaluators", cfg.Evaluators),
		logger.Int("items", cfg.Items),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rps", cfg.RPS))

	if err := client.healthy(ctx); err != nil {
		return stats, err
	}

	plan := Generate(cfg)
	codes, err := seed(ctx, client, &plan)
	if err != nil {
		return stats, fmt.Errorf("seeding failed: %w", err)
	}
	log.Info(ctx, "seeded roster and rubric", logger.Int("items", len(plan.Items)))

	if err := evaluate(ctx, client, cfg, plan, codes, stats); err != nil {
		return stats, fmt.Errorf("evaluation failed: %w", err)
	}

	var actual []model.CandidateResult
	if err := client.call(ctx, asAdmin(), http.MethodGet, "/results", nil, &actual); err != nil {
		return stats, fmt.Errorf("results retrieval failed: %w", err)
	}
	stats.ResultsRetrieved = len(actual)

	diff, err := Diff(plan, Expected(plan), actual)
	if err != nil {
		return stats, fmt.Errorf("diff: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if diff != "" {
		stats.Mismatch = true
		return stats, fmt.Errorf("%w:\n%s", ErrMismatch, diff)
	}
	log.Info(ctx, "published ranking matches local recomputation")
	return stats, nil
}

// Wire shapes of the roster writes. The API rejects unknown fields, so
// server-owned fields such as created_at are left out.
type candidateBody struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MainCategory string `json:"main_category"`
	SubCategory  string `json:"sub_category"`
	SortOrder    int    `json:"sort_order"`
}

type evaluatorBody struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Role model.Role `json:"role"`
}

// seed writes the rubric and roster, then rescores the plan against every
// active item the service holds. It returns each evaluator's access code.
func seed(ctx context.Context, c *HTTPClient, plan *Plan) (map[string]string, error) {
	admin := asAdmin()
	for _, it := range plan.Items {
		if err := c.call(ctx, admin, http.MethodPost, "/items", it, nil); err != nil {
			return nil, err
		}
	}
	for _, cand := range plan.Candidates {
		body := candidateBody{ID: cand.ID, Name: cand.Name, MainCategory: cand.MainCategory, SubCategory: cand.SubCategory, SortOrder: cand.SortOrder}
		if err := c.call(ctx, admin, http.MethodPost, "/candidates", body, nil); err != nil {
			return nil, err
		}
	}
	codes := make(map[string]string, len(plan.Evaluators))
	for _, ev := range plan.Evaluators {
		var created model.Evaluator
		body := evaluatorBody{ID: ev.ID, Name: ev.Name, Role: ev.Role}
		if err := c.call(ctx, admin, http.MethodPost, "/evaluators", body, &created); err != nil {
			return nil, err
		}
		codes[ev.ID] = created.AccessCode
	}

	var items []model.EvaluationItem
	if err := c.call(ctx, admin, http.MethodGet, "/items", nil, &items); err != nil {
		return nil, err
	}
	plan.Score(items)
	return codes, nil
}

// evaluate scores and submits every planned session, cfg.Workers at a time.
// Each session also replays one score and its submit under the same
// idempotency key; the service must acknowledge both without a second write.
func evaluate(ctx context.Context, c *HTTPClient, cfg *Config, plan Plan, codes map[string]string, stats *Stats) error {
	var scored, replayed, submitted, failed atomic.Int64
	log := logger.Named("simulate")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for e, ev := range plan.Evaluators {
		cred := asEvaluator(codes[ev.ID])
		for ci, cand := range plan.Candidates {
			sheet := plan.Scores[e][ci]
			g.Go(func() error {
				prefix := fmt.Sprintf("%s/%s/", ev.ID, cand.ID)
				for k, sc := range sheet {
					body := map[string]any{"candidate_id": sc.CandidateID, "item_id": sc.ItemID, "value": sc.Value}
					key := prefix + sc.ItemID
					if err := c.call(gctx, cred, http.MethodPost, "/scores", body, nil, "Idempotency-Key", key); err != nil {
						failed.Add(1)
						return err
					}
					scored.Add(1)
					if k == 0 {
						if err := c.call(gctx, cred, http.MethodPost, "/scores", body, nil, "Idempotency-Key", key); err != nil {
							failed.Add(1)
							return err
						}
						replayed.Add(1)
					}
				}

				ref := map[string]string{"candidate_id": cand.ID}
				var se model.EvaluationSession
				for range 2 {
					if err := c.call(gctx, cred, http.MethodPost, "/sessions/submit", ref, &se, "Idempotency-Key", prefix+"submit"); err != nil {
						failed.Add(1)
						return err
					}
				}
				if !se.IsCompleted || se.Version != 1 {
					return fmt.Errorf("session %s: completed=%t version=%d", prefix, se.IsCompleted, se.Version)
				}
				submitted.Add(1)
				if cfg.Verbose {
					log.Debug(gctx, "session submitted",
						logger.String("evaluator", ev.ID),
						logger.String("candidate", cand.ID),
						logger.Float64("total", se.TotalScore))
				}
				return nil
			})
		}
	}
	err := g.Wait()

	stats.ScoresSubmitted = int(scored.Load())
	stats.ScoresReplayed = int(replayed.Load())
	stats.SessionsSubmitted = int(submitted.Load())
	stats.Failed = int(failed.Load())
	return err
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.ScoresSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("scoresSubmitted", stats.ScoresSubmitted),
		logger.Int("scoresReplayed", stats.ScoresReplayed),
		logger.Int("sessionsSubmitted", stats.SessionsSubmitted),
		logger.Int("failed", stats.Failed),
		logger.Int("resultsRetrieved", stats.ResultsRetrieved),
		logger.Duration("duration", stats.Duration),
		logger.Float64("scoresPerSecond", perSecond))
}
