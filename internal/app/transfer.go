package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/domain/ingest"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/report"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// Import formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ImportReport summarises one roster import.
type ImportReport struct {
	Created int               `json:"created"`
	Updated int               `json:"updated"`
	Skipped int               `json:"skipped"`
	Errors  []ingest.RowError `json:"errors,omitempty"`
	Unknown []string          `json:"unknown_columns,omitempty"`
}

func (s *Service) parseTable(format string, r io.Reader) (ingest.Table, error) {
	var (
		t   ingest.Table
		err error
	)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV, "":
		t, err = s.mapper.ParseCSV(r)
	case FormatJSON:
		data, rerr := io.ReadAll(r)
		if rerr != nil {
			return ingest.Table{}, rerr
		}
		t, err = s.mapper.ParseJSON(data)
	default:
		return ingest.Table{}, invalid("unsupported import format %q", format)
	}
	if err != nil {
		return t, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return t, nil
}

// ImportCandidates creates or updates candidates from a CSV or JSON roster.
// Rows with an id that already exists update that candidate; other rows
// create one. Unreadable rows are skipped and reported.
func (s *Service) ImportCandidates(ctx context.Context, format string, r io.Reader) (ImportReport, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ImportCandidates",
		trace.WithAttributes(attribute.String("import.format", format)))
	defer span.End()

	t, err := s.parseTable(format, r)
	if err != nil {
		span.RecordError(err)
		return ImportReport{Unknown: t.Unknown}, err
	}
	candidates, rowErrs := ingest.Candidates(t.Rows)
	rep := ImportReport{Skipped: len(rowErrs), Errors: rowErrs, Unknown: t.Unknown}

	now := s.now().UTC()
	for _, c := range candidates {
		c.CreatedAt = now
		if c.ID == "" {
			c.ID = s.newID()
			rep.Created++
		} else if cur, err := s.store.GetCandidate(ctx, c.ID); err == nil {
			c.CreatedAt = cur.CreatedAt
			rep.Updated++
		} else if errors.Is(err, repository.ErrNotFound) {
			rep.Created++
		} else {
			return rep, err
		}
		if err := s.store.UpsertCandidate(ctx, c); err != nil {
			return rep, err
		}
	}
	s.finishImport(ctx, "candidate", rep)
	return rep, nil
}

// ImportEvaluators creates or updates evaluators from a CSV or JSON roster.
// New evaluators get a fresh access code; updated ones keep theirs.
func (s *Service) ImportEvaluators(ctx context.Context, format string, r io.Reader) (ImportReport, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ImportEvaluators",
		trace.WithAttributes(attribute.String("import.format", format)))
	defer span.End()

	t, err := s.parseTable(format, r)
	if err != nil {
		span.RecordError(err)
		return ImportReport{Unknown: t.Unknown}, err
	}
	evaluators, rowErrs := ingest.Evaluators(t.Rows)
	rep := ImportReport{Skipped: len(rowErrs), Errors: rowErrs, Unknown: t.Unknown}

	now := s.now().UTC()
	for _, e := range evaluators {
		if e.ID != "" {
			cur, err := s.store.GetEvaluator(ctx, e.ID)
			if err == nil {
				e.AccessCode = cur.AccessCode
				e.CreatedAt = cur.CreatedAt
				if err := s.store.UpsertEvaluator(ctx, e); err != nil {
					return rep, err
				}
				rep.Updated++
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return rep, err
			}
		} else {
			e.ID = s.newID()
		}
		e.CreatedAt = now
		if err := s.saveWithNewCode(ctx, &e); err != nil {
			return rep, err
		}
		rep.Created++
	}
	s.finishImport(ctx, "evaluator", rep)
	return rep, nil
}

func (s *Service) finishImport(ctx context.Context, entity string, rep ImportReport) {
	metrics.RecordImportedRows(entity, "created", rep.Created)
	metrics.RecordImportedRows(entity, "updated", rep.Updated)
	metrics.RecordImportedRows(entity, "skipped", rep.Skipped)
	s.logger.Info(ctx, "roster imported",
		logger.String("entity", entity),
		logger.Int("created", rep.Created),
		logger.Int("updated", rep.Updated),
		logger.Int("skipped", rep.Skipped),
		logger.Any("unknown_columns", rep.Unknown),
	)
	s.enqueue(ctx, "import", "", "")
}

// ExportResultsCSV writes the current results, with final selection flags,
// as a spreadsheet-friendly CSV.
func (s *Service) ExportResultsCSV(ctx context.Context, w io.Writer) error {
	results, err := s.selectedResults(ctx)
	if err != nil {
		return err
	}
	return report.WriteResultsCSV(w, results)
}

// RenderResultsReport writes a printable HTML report of the results,
// evaluator progress and final selections.
func (s *Service) RenderResultsReport(ctx context.Context, w io.Writer) error {
	ctx, span := s.tracer.Start(ctx, "Service.RenderResultsReport")
	defer span.End()

	results, err := s.selectedResults(ctx)
	if err != nil {
		return err
	}
	progress, err := s.AllEvaluatorProgress(ctx)
	if err != nil {
		return err
	}
	final, err := s.FinalSelected(ctx)
	if err != nil {
		return err
	}
	title, err := s.settingOr(ctx, SettingEvaluationTitle, defaultReportTitle)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(results))
	for _, r := range results {
		names[r.CandidateID] = r.Name
	}
	return report.RenderHTML(w, report.Data{
		Title:       title,
		GeneratedAt: s.now(),
		Threshold:   s.threshold,
		Results:     results,
		Progress:    progress,
		Final:       final,
		Names:       names,
	})
}

// selectedResults returns fresh results whose Selected flag reflects the
// curated final selection rather than the bare threshold suggestion.
func (s *Service) selectedResults(ctx context.Context) ([]model.CandidateResult, error) {
	results, err := s.Results(ctx)
	if err != nil {
		return nil, err
	}
	state, err := s.selectionState(ctx, results)
	if err != nil {
		return nil, err
	}
	selected := make(map[string]bool)
	for _, g := range state.Groups {
		for _, e := range g.Entries {
			selected[e.CandidateID] = e.Selected
		}
	}
	for i := range results {
		results[i].Selected = selected[results[i].CandidateID]
	}
	return results, nil
}
