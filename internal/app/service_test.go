package service_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scorecard/internal/adapters/repository"
	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const rubricYAML = `
name: panel
categories:
  - id: plan
    name: 사업계획
    items:
      - id: plan-1
        name: 구체성
        max_score: 20
      - id: plan-2
        name: 예산
        max_score: 10
        weight: 2
`

// newService opens a fresh store and starts a service over it. Snapshot
// refresh is left to explicit Recompute calls.
func newService(t *testing.T, opts ...service.Option) (*service.Service, repository.Store) {
	t.Helper()
	return newServiceOver(t, func(s repository.Store) repository.Store { return s }, opts...)
}

// newServiceOver is newService with the store passed through wrap first.
func newServiceOver(t *testing.T, wrap func(repository.Store) repository.Store, opts ...service.Option) (*service.Service, repository.Store) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "svc.db") + "?_pragma=foreign_keys(1)"
	opened, err := repository.Open(context.Background(), "sqlite", dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	store := wrap(opened)
	opts = append([]service.Option{service.WithSnapshotInterval(0), service.WithWorkerCount(1)}, opts...)
	svc := service.New(store, opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(func() {
		svc.Stop()
		_ = store.Close()
	})
	return svc, store
}

// seed creates two equally weighted 50-point items, two active candidates,
// one inactive candidate and two evaluators.
func seed(ctx context.Context, svc *service.Service) {
	_, err := svc.SaveItem(ctx, model.EvaluationItem{ID: "i1", Name: "Plan", MaxScore: 50, Weight: 1, Active: true})
	So(err, ShouldBeNil)
	_, err = svc.SaveItem(ctx, model.EvaluationItem{ID: "i2", Name: "Team", MaxScore: 50, Weight: 1, Active: true})
	So(err, ShouldBeNil)
	for _, c := range []model.Candidate{
		{ID: "c1", Name: "Alpha", Active: true, SortOrder: 1},
		{ID: "c2", Name: "Beta", Active: true, SortOrder: 2, MainCategory: "재참여", SubCategory: "단독"},
		{ID: "c3", Name: "Gamma", Active: false, SortOrder: 3},
	} {
		_, err := svc.CreateCandidate(ctx, c)
		So(err, ShouldBeNil)
	}
	for _, e := range []model.Evaluator{
		{ID: "e1", Name: "Kim", Active: true},
		{ID: "e2", Name: "Lee", Active: true},
	} {
		_, err := svc.CreateEvaluator(ctx, e)
		So(err, ShouldBeNil)
	}
}

func score(ctx context.Context, svc *service.Service, ev, cand, item string, v float64) {
	_, err := svc.RecordScore(ctx, service.ScoreInput{EvaluatorID: ev, CandidateID: cand, ItemID: item, Value: v})
	So(err, ShouldBeNil)
}

func submitted(ctx context.Context, svc *service.Service, ev, cand string, v1, v2 float64) {
	score(ctx, svc, ev, cand, "i1", v1)
	score(ctx, svc, ev, cand, "i2", v2)
	_, err := svc.SubmitSession(ctx, ev, cand, "")
	So(err, ShouldBeNil)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, _ := newService(t)
		ctx := context.Background()

		Convey("Then it reports itself as started", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["workerCount"], ShouldEqual, 1)
			So(stats["queueLength"], ShouldEqual, 0)
			So(svc.Ping(ctx), ShouldBeNil)
		})

		Convey("When starting it again", func() {
			err := svc.Start(ctx)

			Convey("Then it is a no-op", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When stopping it twice", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it is no longer started", func() {
				So(svc.GetStats()["started"], ShouldBeFalse)
			})
		})
	})
}

func TestService_Scoring(t *testing.T) {
	Convey("Given a seeded service", t, func() {
		svc, _ := newService(t)
		ctx := context.Background()
		seed(ctx, svc)

		Convey("When a score exceeds the item maximum", func() {
			se, err := svc.RecordScore(ctx, service.ScoreInput{EvaluatorID: "e1", CandidateID: "c1", ItemID: "i1", Value: 80})

			Convey("Then it is clamped and the draft total follows", func() {
				So(err, ShouldBeNil)
				So(se.TotalScore, ShouldEqual, 50)
				So(se.IsCompleted, ShouldBeFalse)
				scores, err := svc.Scores(ctx, "e1", "c1")
				So(err, ShouldBeNil)
				So(len(scores), ShouldEqual, 1)
				So(scores[0].Value, ShouldEqual, 50)
			})
		})

		Convey("When a negative score is recorded", func() {
			se, err := svc.RecordScore(ctx, service.ScoreInput{EvaluatorID: "e1", CandidateID: "c1", ItemID: "i1", Value: -3})

			Convey("Then it is stored as zero", func() {
				So(err, ShouldBeNil)
				So(se.TotalScore, ShouldEqual, 0)
			})
		})

		Convey("When the same item is scored twice", func() {
			score(ctx, svc, "e1", "c1", "i1", 10)
			score(ctx, svc, "e1", "c1", "i1", 30)

			Convey("Then the later value replaces the earlier one", func() {
				scores, err := svc.Scores(ctx, "e1", "c1")
				So(err, ShouldBeNil)
				So(len(scores), ShouldEqual, 1)
				So(scores[0].Value, ShouldEqual, 30)
			})
		})

		Convey("When the input names an unknown item", func() {
			_, err := svc.RecordScore(ctx, service.ScoreInput{EvaluatorID: "e1", CandidateID: "c1", ItemID: "nope", Value: 1})

			Convey("Then it is rejected as invalid", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the candidate is inactive", func() {
			_, err := svc.RecordScore(ctx, service.ScoreInput{EvaluatorID: "e1", CandidateID: "c3", ItemID: "i1", Value: 1})

			Convey("Then it is rejected as invalid", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the evaluator is unknown", func() {
			_, err := svc.RecordScore(ctx, service.ScoreInput{EvaluatorID: "ghost", CandidateID: "c1", ItemID: "i1", Value: 1})

			Convey("Then it is not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When required fields are missing", func() {
			_, err := svc.RecordScore(ctx, service.ScoreInput{CandidateID: "c1", ItemID: "i1"})

			Convey("Then validation fails", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When a write is replayed with the same idempotency key", func() {
			in := service.ScoreInput{EvaluatorID: "e1", CandidateID: "c1", ItemID: "i1", Value: 10, IdempotencyKey: "k1"}
			_, err := svc.RecordScore(ctx, in)
			So(err, ShouldBeNil)
			in.Value = 40
			se, err := svc.RecordScore(ctx, in)

			Convey("Then the replay is acknowledged without a second write", func() {
				So(err, ShouldBeNil)
				So(se.TotalScore, ShouldEqual, 10)
				scores, _ := svc.Scores(ctx, "e1", "c1")
				So(scores[0].Value, ShouldEqual, 10)
			})
		})

		Convey("When two evaluators send the same idempotency key", func() {
			_, err := svc.RecordScore(ctx, service.ScoreInput{EvaluatorID: "e1", CandidateID: "c1", ItemID: "i1", Value: 10, IdempotencyKey: "1"})
			So(err, ShouldBeNil)
			se, err := svc.RecordScore(ctx, service.ScoreInput{EvaluatorID: "e2", CandidateID: "c1", ItemID: "i1", Value: 30, IdempotencyKey: "1"})

			Convey("Then both scores are written", func() {
				So(err, ShouldBeNil)
				So(se.TotalScore, ShouldEqual, 30)
				mine, _ := svc.Scores(ctx, "e1", "c1")
				So(mine, ShouldHaveLength, 1)
				So(mine[0].Value, ShouldEqual, 10)
				theirs, _ := svc.Scores(ctx, "e2", "c1")
				So(theirs, ShouldHaveLength, 1)
				So(theirs[0].Value, ShouldEqual, 30)
			})
		})

		Convey("When one key is reused across items and the submission", func() {
			_, err := svc.RecordScore(ctx, service.ScoreInput{EvaluatorID: "e1", CandidateID: "c1", ItemID: "i1", Value: 10, IdempotencyKey: "1"})
			So(err, ShouldBeNil)
			_, err = svc.RecordScore(ctx, service.ScoreInput{EvaluatorID: "e1", CandidateID: "c1", ItemID: "i2", Value: 20, IdempotencyKey: "1"})
			So(err, ShouldBeNil)
			se, err := svc.SubmitSession(ctx, "e1", "c1", "1")

			Convey("Then each write is applied", func() {
				So(err, ShouldBeNil)
				So(se.IsCompleted, ShouldBeTrue)
				So(se.Version, ShouldEqual, 1)
				So(se.TotalScore, ShouldEqual, 30)
			})
		})

		Convey("When a failed write is retried with the same key", func() {
			in := service.ScoreInput{EvaluatorID: "e1", CandidateID: "c1", ItemID: "nope", Value: 10, IdempotencyKey: "k2"}
			_, err := svc.RecordScore(ctx, in)
			So(err, ShouldNotBeNil)
			in.ItemID = "i1"
			se, err := svc.RecordScore(ctx, in)

			Convey("Then the retry is applied", func() {
				So(err, ShouldBeNil)
				So(se.TotalScore, ShouldEqual, 10)
			})
		})
	})
}

// stallingScores holds the first score write until release is closed and
// then fails it. Later writes reach the wrapped store.
type stallingScores struct {
	repository.Store
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (s *stallingScores) UpsertScore(ctx context.Context, sc model.Score) error {
	if s.calls.Add(1) == 1 {
		close(s.entered)
		<-s.release
		return errors.New("disk full")
	}
	return s.Store.UpsertScore(ctx, sc)
}

func TestService_ConcurrentDuplicate(t *testing.T) {
	Convey("Given a score write that stalls and then fails", t, func() {
		stall := &stallingScores{entered: make(chan struct{}), release: make(chan struct{})}
		svc, _ := newServiceOver(t, func(s repository.Store) repository.Store {
			stall.Store = s
			return stall
		})
		ctx := context.Background()
		seed(ctx, svc)
		in := service.ScoreInput{EvaluatorID: "e1", CandidateID: "c1", ItemID: "i1", Value: 10, IdempotencyKey: "k"}

		type outcome struct {
			se  model.EvaluationSession
			err error
		}
		first := make(chan error, 1)
		go func() {
			_, err := svc.RecordScore(ctx, in)
			first <- err
		}()
		<-stall.entered

		second := make(chan outcome, 1)
		go func() {
			se, err := svc.RecordScore(ctx, in)
			second <- outcome{se, err}
		}()

		var dup outcome
		early := false
		select {
		case dup = <-second:
			early = true
		case <-time.After(100 * time.Millisecond):
		}
		close(stall.release)
		firstErr := <-first
		if !early {
			dup = <-second
		}

		Convey("Then the duplicate waits for the first attempt and writes the score itself", func() {
			So(early, ShouldBeFalse)
			So(firstErr, ShouldNotBeNil)
			So(dup.err, ShouldBeNil)
			So(dup.se.TotalScore, ShouldEqual, 10)
			scores, err := svc.Scores(ctx, "e1", "c1")
			So(err, ShouldBeNil)
			So(scores, ShouldHaveLength, 1)
			So(stall.calls.Load(), ShouldEqual, 2)
		})
	})
}

func TestService_Submission(t *testing.T) {
	Convey("Given a seeded service with one item scored", t, func() {
		svc, _ := newService(t)
		ctx := context.Background()
		seed(ctx, svc)
		score(ctx, svc, "e1", "c1", "i1", 40)

		Convey("When submitting the incomplete session", func() {
			_, err := svc.SubmitSession(ctx, "e1", "c1", "")

			Convey("Then the missing items are reported", func() {
				So(errors.Is(err, service.ErrIncompleteSession), ShouldBeTrue)
				var inc *service.IncompleteError
				So(errors.As(err, &inc), ShouldBeTrue)
				So(inc.Missing, ShouldResemble, []string{"i2"})
			})
		})

		Convey("When every item is scored and submitted", func() {
			score(ctx, svc, "e1", "c1", "i2", 45)
			se, err := svc.SubmitSession(ctx, "e1", "c1", "")

			Convey("Then the session is completed at version 1", func() {
				So(err, ShouldBeNil)
				So(se.IsCompleted, ShouldBeTrue)
				So(se.Version, ShouldEqual, 1)
				So(se.TotalScore, ShouldEqual, 85)
				So(se.SubmittedAt, ShouldNotBeNil)
			})

			Convey("Then its scores can no longer change", func() {
				_, err := svc.RecordScore(ctx, service.ScoreInput{EvaluatorID: "e1", CandidateID: "c1", ItemID: "i1", Value: 1})
				So(errors.Is(err, service.ErrSessionCompleted), ShouldBeTrue)
				_, err = svc.SubmitSession(ctx, "e1", "c1", "")
				So(errors.Is(err, service.ErrSessionCompleted), ShouldBeTrue)
			})

			Convey("Then reopening allows a corrected resubmission", func() {
				reopened, err := svc.ReopenSession(ctx, "e1", "c1")
				So(err, ShouldBeNil)
				So(reopened.IsCompleted, ShouldBeFalse)
				So(reopened.SubmittedAt, ShouldBeNil)

				score(ctx, svc, "e1", "c1", "i2", 20)
				se, err := svc.SubmitSession(ctx, "e1", "c1", "")
				So(err, ShouldBeNil)
				So(se.Version, ShouldEqual, 2)
				So(se.TotalScore, ShouldEqual, 60)
			})
		})

		Convey("When reopening a draft session", func() {
			se, err := svc.ReopenSession(ctx, "e1", "c1")

			Convey("Then nothing changes", func() {
				So(err, ShouldBeNil)
				So(se.IsCompleted, ShouldBeFalse)
				So(se.Version, ShouldEqual, 0)
			})
		})
	})
}

func TestService_Results(t *testing.T) {
	Convey("Given submitted sessions from two evaluators", t, func() {
		svc, _ := newService(t)
		ctx := context.Background()
		seed(ctx, svc)
		submitted(ctx, svc, "e1", "c1", 45, 45) // 90
		submitted(ctx, svc, "e2", "c1", 35, 35) // 70
		submitted(ctx, svc, "e1", "c2", 30, 30) // 60
		score(ctx, svc, "e2", "c2", "i1", 50)   // draft, ignored

		Convey("When computing results", func() {
			results, err := svc.Results(ctx)

			Convey("Then averages rank active candidates only", func() {
				So(err, ShouldBeNil)
				So(len(results), ShouldEqual, 2)
				So(results[0].CandidateID, ShouldEqual, "c1")
				So(results[0].AverageScore, ShouldEqual, 80)
				So(results[0].SessionCount, ShouldEqual, 2)
				So(results[0].Rank, ShouldEqual, 1)
				So(results[0].Selected, ShouldBeTrue)
				So(results[1].CandidateID, ShouldEqual, "c2")
				So(results[1].AverageScore, ShouldEqual, 60)
				So(results[1].Selected, ShouldBeFalse)
			})
		})

		Convey("When the snapshot is recomputed", func() {
			gen, err := svc.Recompute(ctx, model.RecomputeRequest{Reason: "test"})
			So(err, ShouldBeNil)

			Convey("Then the leaderboard and rank are served from it", func() {
				So(svc.SnapshotGeneration(), ShouldEqual, gen)
				top, err := svc.Leaderboard(ctx, 1)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 1)
				So(top[0].CandidateID, ShouldEqual, "c1")

				r, err := svc.Rank(ctx, "c2")
				So(err, ShouldBeNil)
				So(r.Rank, ShouldEqual, 2)

				_, err = svc.Rank(ctx, "c3")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				_, err = svc.Leaderboard(ctx, 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When the worker pool catches up", func() {
			deadline := time.Now().Add(5 * time.Second)
			for svc.GetStats()["snapshotCandidates"] != 2 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}

			Convey("Then the published snapshot holds every active candidate", func() {
				top, err := svc.Leaderboard(ctx, 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 2)
				So(top[0].AverageScore, ShouldEqual, 80)
			})
		})

		Convey("When a higher threshold is configured", func() {
			strict, _ := newService(t, service.WithSelectionThreshold(95))
			seed(ctx, strict)
			submitted(ctx, strict, "e1", "c1", 45, 45)
			results, err := strict.Results(ctx)

			Convey("Then the suggestion follows it", func() {
				So(err, ShouldBeNil)
				So(results[0].AverageScore, ShouldEqual, 90)
				So(results[0].Selected, ShouldBeFalse)
			})
		})
	})
}

func TestService_Progress(t *testing.T) {
	Convey("Given one evaluator with assignments and one without", t, func() {
		svc, _ := newService(t)
		ctx := context.Background()
		seed(ctx, svc)
		So(svc.SetAssignments(ctx, "e2", []string{"c2"}), ShouldBeNil)
		submitted(ctx, svc, "e1", "c1", 10, 10)
		submitted(ctx, svc, "e2", "c1", 10, 10)

		Convey("When reading an unassigned evaluator's progress", func() {
			p, err := svc.EvaluatorProgress(ctx, "e1")

			Convey("Then every active candidate is in the workload", func() {
				So(err, ShouldBeNil)
				So(p.TotalCount, ShouldEqual, 2)
				So(p.CompletedCount, ShouldEqual, 1)
				So(p.ProgressPercent, ShouldEqual, 50)
			})
		})

		Convey("When reading an assigned evaluator's progress", func() {
			p, err := svc.EvaluatorProgress(ctx, "e2")

			Convey("Then sessions outside the assignment do not count", func() {
				So(err, ShouldBeNil)
				So(p.TotalCount, ShouldEqual, 1)
				So(p.CompletedCount, ShouldEqual, 0)
			})
		})

		Convey("When listing all progress", func() {
			all, err := svc.AllEvaluatorProgress(ctx)

			Convey("Then one entry per active evaluator is returned", func() {
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 2)
			})

			Convey("Then each entry follows that evaluator's assignments", func() {
				byID := map[string]model.EvaluatorProgress{}
				for _, p := range all {
					byID[p.EvaluatorID] = p
				}
				So(byID["e1"].TotalCount, ShouldEqual, 2)
				So(byID["e1"].CompletedCount, ShouldEqual, 1)
				So(byID["e2"].TotalCount, ShouldEqual, 1)
				So(byID["e2"].CompletedCount, ShouldEqual, 0)
			})
		})

		Convey("When assigning an unknown candidate", func() {
			err := svc.SetAssignments(ctx, "e1", []string{"zz"})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestService_Selection(t *testing.T) {
	Convey("Given results with one candidate over the threshold", t, func() {
		svc, _ := newService(t)
		ctx := context.Background()
		seed(ctx, svc)
		submitted(ctx, svc, "e1", "c1", 45, 45)
		submitted(ctx, svc, "e1", "c2", 10, 10)

		Convey("When reading the selection groups", func() {
			state, err := svc.SelectionGroups(ctx)

			Convey("Then candidates are grouped by category pair with defaults", func() {
				So(err, ShouldBeNil)
				So(len(state.Groups), ShouldEqual, 2)
				So(state.Groups[0].MainCategory, ShouldEqual, "신규")
				So(state.Groups[0].SubCategory, ShouldEqual, "일시동행")
				So(state.Groups[0].Entries[0].Selected, ShouldBeTrue)
				So(state.Groups[1].MainCategory, ShouldEqual, "재참여")
				So(state.Groups[1].Entries[0].Selected, ShouldBeFalse)
			})
		})

		Convey("When an administrator selects the weaker candidate", func() {
			_, err := svc.ApplySelection(ctx, "c2", true)
			So(err, ShouldBeNil)
			final, err := svc.FinalSelected(ctx)
			So(err, ShouldBeNil)

			Convey("Then both are finally selected", func() {
				So(len(final), ShouldEqual, 2)
			})

			Convey("Then resetting returns to the suggestion", func() {
				_, err := svc.ResetSelectionsToSuggestion(ctx)
				So(err, ShouldBeNil)
				final, err := svc.FinalSelected(ctx)
				So(err, ShouldBeNil)
				So(len(final), ShouldEqual, 1)
				So(final[0].CandidateID, ShouldEqual, "c1")
			})
		})

		Convey("When selecting an inactive candidate", func() {
			_, err := svc.ApplySelection(ctx, "c3", true)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestService_Roster(t *testing.T) {
	Convey("Given a seeded service", t, func() {
		svc, _ := newService(t)
		ctx := context.Background()
		seed(ctx, svc)

		Convey("When creating a candidate with a taken id", func() {
			_, err := svc.CreateCandidate(ctx, model.Candidate{ID: "c1", Name: "Dup"})

			Convey("Then it conflicts", func() {
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
			})
		})

		Convey("When authenticating with an access code", func() {
			ev, err := svc.GetEvaluator(ctx, "e1")
			So(err, ShouldBeNil)
			So(len(ev.AccessCode), ShouldBeGreaterThanOrEqualTo, 6)
			got, err := svc.AuthenticateEvaluator(ctx, ev.AccessCode)

			Convey("Then the evaluator is resolved", func() {
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "e1")
			})

			Convey("Then a rotated code replaces the old one", func() {
				rotated, err := svc.RotateAccessCode(ctx, "e1")
				So(err, ShouldBeNil)
				So(rotated.AccessCode, ShouldNotEqual, ev.AccessCode)
				_, err = svc.AuthenticateEvaluator(ctx, ev.AccessCode)
				So(errors.Is(err, service.ErrInvalidAccessCode), ShouldBeTrue)
			})

			Convey("Then a deactivated evaluator is forbidden", func() {
				ev.Active = false
				_, err := svc.UpdateEvaluator(ctx, ev)
				So(err, ShouldBeNil)
				_, err = svc.AuthenticateEvaluator(ctx, ev.AccessCode)
				So(errors.Is(err, service.ErrForbidden), ShouldBeTrue)
			})
		})

		Convey("When authenticating with an unknown code", func() {
			_, err := svc.AuthenticateEvaluator(ctx, "nope")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidAccessCode), ShouldBeTrue)
			})
		})

		Convey("When a candidate is deleted", func() {
			submitted(ctx, svc, "e1", "c1", 10, 10)
			So(svc.DeleteCandidate(ctx, "c1"), ShouldBeNil)

			Convey("Then its sessions go with it", func() {
				sessions, err := svc.Sessions(ctx, "", "c1")
				So(err, ShouldBeNil)
				So(sessions, ShouldBeEmpty)
			})
		})
	})
}

func TestService_Rubric(t *testing.T) {
	Convey("Given a service with a stored template", t, func() {
		svc, _ := newService(t)
		ctx := context.Background()
		tpl, err := svc.SaveTemplate(ctx, "", []byte(rubricYAML))
		So(err, ShouldBeNil)
		So(tpl.Name, ShouldEqual, "panel")

		Convey("When applying it", func() {
			applied, err := svc.ApplyTemplate(ctx, "panel")

			Convey("Then its categories and items become the rubric", func() {
				So(err, ShouldBeNil)
				So(applied.Categories, ShouldEqual, 1)
				So(applied.Items, ShouldEqual, 2)
				So(applied.MaxTotal, ShouldEqual, 40)
				items, err := svc.ListItems(ctx)
				So(err, ShouldBeNil)
				So(len(items), ShouldEqual, 2)
			})

			Convey("Then the rubric can be captured under a new name", func() {
				captured, err := svc.CaptureTemplate(ctx, "copy")
				So(err, ShouldBeNil)
				So(captured.Body, ShouldContainSubstring, "plan-2")
				list, err := svc.ListTemplates(ctx)
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 2)
			})

			Convey("Then deleting the category keeps its items", func() {
				So(svc.DeleteCategory(ctx, "plan"), ShouldBeNil)
				items, err := svc.ListItems(ctx)
				So(err, ShouldBeNil)
				So(len(items), ShouldEqual, 2)
				So(items[0].CategoryID, ShouldBeEmpty)
			})
		})

		Convey("When saving a malformed template", func() {
			_, err := svc.SaveTemplate(ctx, "bad", []byte("name: x\ncategories: []\nunknown: 1\n"))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When saving an item under an unknown category", func() {
			_, err := svc.SaveItem(ctx, model.EvaluationItem{Name: "x", CategoryID: "none", MaxScore: 1, Weight: 1})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestService_Transfer(t *testing.T) {
	Convey("Given an empty service", t, func() {
		svc, _ := newService(t)
		ctx := context.Background()

		Convey("When importing a Korean candidate roster", func() {
			csv := "번호,이름,부서,구분,메모\nc1,홍길동,기획팀,재참여,x\n,,영업팀,,y\nc2,이몽룡,,,\n"
			rep, err := svc.ImportCandidates(ctx, "csv", strings.NewReader(csv))

			Convey("Then good rows are created and bad ones reported", func() {
				So(err, ShouldBeNil)
				So(rep.Created, ShouldEqual, 2)
				So(rep.Skipped, ShouldEqual, 1)
				So(rep.Errors[0].Line, ShouldEqual, 2)
				So(rep.Unknown, ShouldResemble, []string{"메모"})
				c, err := svc.GetCandidate(ctx, "c1")
				So(err, ShouldBeNil)
				So(c.MainCategory, ShouldEqual, "재참여")
				So(c.Active, ShouldBeTrue)
			})

			Convey("Then a second import updates existing ids", func() {
				rep, err := svc.ImportCandidates(ctx, "json", strings.NewReader(`[{"id":"c1","name":"홍길동","department":"인사팀"}]`))
				So(err, ShouldBeNil)
				So(rep.Updated, ShouldEqual, 1)
				c, _ := svc.GetCandidate(ctx, "c1")
				So(c.Department, ShouldEqual, "인사팀")
			})
		})

		Convey("When importing evaluators", func() {
			rep, err := svc.ImportEvaluators(ctx, "csv", strings.NewReader("성명,역할\n김위원장,위원장\n박위원,\n"))

			Convey("Then each gets an access code", func() {
				So(err, ShouldBeNil)
				So(rep.Created, ShouldEqual, 2)
				list, err := svc.ListEvaluators(ctx)
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 2)
				for _, e := range list {
					So(e.AccessCode, ShouldNotBeEmpty)
				}
			})
		})

		Convey("When the roster has no name column", func() {
			_, err := svc.ImportCandidates(ctx, "csv", strings.NewReader("foo,bar\n1,2\n"))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the format is unknown", func() {
			_, err := svc.ImportCandidates(ctx, "xlsx", strings.NewReader(""))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})

	Convey("Given scored results", t, func() {
		svc, _ := newService(t)
		ctx := context.Background()
		seed(ctx, svc)
		submitted(ctx, svc, "e1", "c1", 45, 45)
		_, err := svc.PutSetting(ctx, service.SettingEvaluationTitle, "2026 심사 결과")
		So(err, ShouldBeNil)

		Convey("When exporting CSV", func() {
			var buf bytes.Buffer
			err := svc.ExportResultsCSV(ctx, &buf)

			Convey("Then every active candidate is a row", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				So(len(lines), ShouldEqual, 3)
				So(lines[1], ShouldContainSubstring, "Alpha")
				So(lines[1], ShouldContainSubstring, "90.0")
			})
		})

		Convey("When rendering the report", func() {
			var buf bytes.Buffer
			err := svc.RenderResultsReport(ctx, &buf)

			Convey("Then it carries the configured title", func() {
				So(err, ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, "2026 심사 결과")
				So(buf.String(), ShouldContainSubstring, "Alpha")
			})
		})
	})
}
