// Package report renders evaluation results for export and printing.
package report

import (
	"embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/okian/scorecard/internal/domain/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"score": formatScore,
	"pct":   func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" },
	"date":  func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}).ParseFS(templateFS, "templates/*.html"))

// utf8BOM lets spreadsheet tools detect UTF-8 in Korean exports.
const utf8BOM = "\ufeff"

var resultHeader = []string{
	"rank", "candidate_id", "name", "department", "position",
	"main_category", "sub_category", "average_score", "session_count", "selected",
}

// Data is everything a printable report shows.
type Data struct {
	Title       string
	GeneratedAt time.Time
	Threshold   float64
	Results     []model.CandidateResult
	Progress    []model.EvaluatorProgress
	Final       []model.SelectionEntry
	Names       map[string]string // candidate id -> display name
}

// WriteResultsCSV writes one row per result, preceded by a header and a BOM.
func WriteResultsCSV(w io.Writer, results []model.CandidateResult) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		rec := []string{
			strconv.Itoa(r.Rank),
			r.CandidateID,
			r.Name,
			r.Department,
			r.Position,
			r.MainCategory,
			r.SubCategory,
			formatScore(r.AverageScore),
			strconv.Itoa(r.SessionCount),
			strconv.FormatBool(r.Selected),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", r.CandidateID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderHTML writes the printable results page.
func RenderHTML(w io.Writer, d Data) error {
	if d.GeneratedAt.IsZero() {
		d.GeneratedAt = time.Now()
	}
	if err := pages.ExecuteTemplate(w, "results.html", d); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
