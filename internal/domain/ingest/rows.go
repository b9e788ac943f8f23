package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/scorecard/internal/domain/model"
)

// Sentinel kinds for import errors.
var (
	ErrUnknownColumns = errors.New("no recognised name column")
	ErrMalformed      = errors.New("malformed import document")
)

// Row is one imported record keyed by canonical field.
type Row map[Field]string

// RowError reports a skipped record. Line is 1-based over data rows.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Table is a parsed import document.
type Table struct {
	Rows    []Row
	Unknown []string // headers that matched no field
}

// ParseCSV reads a header line followed by data lines. Blank lines are
// skipped. A table without a name column fails with ErrUnknownColumns.
func (m *Mapper) ParseCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, fmt.Errorf("empty csv: %w", ErrMalformed)
	}
	if err != nil {
		return Table{}, fmt.Errorf("read csv header: %w: %w", ErrMalformed, err)
	}

	var t Table
	cols := make([]Field, len(header))
	for i, h := range header {
		f, ok := m.Resolve(h)
		if !ok {
			if strings.TrimSpace(h) != "" {
				t.Unknown = append(t.Unknown, h)
			}
			continue
		}
		cols[i] = f
	}
	if !hasField(cols, FieldName) {
		return t, fmt.Errorf("headers %q: %w", header, ErrUnknownColumns)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return t, fmt.Errorf("read csv: %w: %w", ErrMalformed, err)
		}
		row := make(Row, len(cols))
		for i, v := range rec {
			if i >= len(cols) || cols[i] == "" {
				continue
			}
			if _, dup := row[cols[i]]; dup {
				continue
			}
			row[cols[i]] = strings.TrimSpace(v)
		}
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ParseJSON accepts an array of objects, or an object holding such an array
// under "rows", "data", "items", "candidates" or "evaluators". Object keys
// go through the same alias table as CSV headers.
func (m *Mapper) ParseJSON(data []byte) (Table, error) {
	if !gjson.ValidBytes(data) {
		return Table{}, fmt.Errorf("invalid json: %w", ErrMalformed)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		found := false
		for _, key := range []string{"rows", "data", "items", "candidates", "evaluators"} {
			if v := doc.Get(key); v.IsArray() {
				doc, found = v, true
				break
			}
		}
		if !found {
			return Table{}, fmt.Errorf("no row array: %w", ErrMalformed)
		}
	}

	var t Table
	unknown := make(map[string]struct{})
	sawName := false
	objects := 0
	var parseErr error
	doc.ForEach(func(_, obj gjson.Result) bool {
		if !obj.IsObject() {
			parseErr = fmt.Errorf("row is %s, not an object: %w", obj.Type, ErrMalformed)
			return false
		}
		objects++
		row := make(Row)
		obj.ForEach(func(k, v gjson.Result) bool {
			f, ok := m.Resolve(k.String())
			if !ok {
				if _, seen := unknown[k.String()]; !seen {
					unknown[k.String()] = struct{}{}
					t.Unknown = append(t.Unknown, k.String())
				}
				return true
			}
			if f == FieldName {
				sawName = true
			}
			if _, dup := row[f]; !dup && v.Type != gjson.Null {
				row[f] = strings.TrimSpace(v.String())
			}
			return true
		})
		if !isBlank(row) {
			t.Rows = append(t.Rows, row)
		}
		return true
	})
	if parseErr != nil {
		return Table{}, parseErr
	}
	if objects > 0 && !sawName {
		return t, fmt.Errorf("keys %q: %w", t.Unknown, ErrUnknownColumns)
	}
	return t, nil
}

// Candidates converts rows into candidates. Rows without a name, or with an
// unreadable sort order or active flag, are skipped and reported. A missing
// sort order defaults to the row's position.
func Candidates(rows []Row) ([]model.Candidate, []RowError) {
	var out []model.Candidate
	var rowErrs []RowError
	for i, row := range rows {
		line := i + 1
		if row[FieldName] == "" {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "missing name"})
			continue
		}
		order, err := parseSortOrder(row[FieldSortOrder], line)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		active, err := ParseActive(row[FieldActive])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		out = append(out, model.Candidate{
			ID:           row[FieldID],
			Name:         row[FieldName],
			Department:   row[FieldDepartment],
			Position:     row[FieldPosition],
			MainCategory: row[FieldMainCategory],
			SubCategory:  row[FieldSubCategory],
			Active:       active,
			SortOrder:    order,
		})
	}
	return out, rowErrs
}

// Evaluators converts rows into evaluators. Rows without a name or with an
// unknown role are skipped and reported.
func Evaluators(rows []Row) ([]model.Evaluator, []RowError) {
	var out []model.Evaluator
	var rowErrs []RowError
	for i, row := range rows {
		line := i + 1
		if row[FieldName] == "" {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "missing name"})
			continue
		}
		role, err := ParseRole(row[FieldRole])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		active, err := ParseActive(row[FieldActive])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		out = append(out, model.Evaluator{
			ID:         row[FieldID],
			Name:       row[FieldName],
			Department: row[FieldDepartment],
			Role:       role,
			Active:     active,
		})
	}
	return out, rowErrs
}

// ParseRole maps role labels to roles. Empty means member.
func ParseRole(s string) (model.Role, error) {
	switch Normalize(s) {
	case "", "member", "위원":
		return model.RoleMember, nil
	case "chair", "chairperson", "위원장":
		return model.RoleChair, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// ParseActive reads an active flag. Empty means active.
func ParseActive(s string) (bool, error) {
	switch Normalize(s) {
	case "", "1", "true", "t", "y", "yes", "o", "사용", "활성", "예":
		return true, nil
	case "0", "false", "f", "n", "no", "x", "미사용", "비활성", "아니오":
		return false, nil
	default:
		return false, fmt.Errorf("unreadable active flag %q", s)
	}
}

func parseSortOrder(s string, line int) (int, error) {
	if s == "" {
		return line, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("unreadable sort order %q", s)
	}
	return int(f), nil
}

func hasField(cols []Field, f Field) bool {
	for _, c := range cols {
		if c == f {
			return true
		}
	}
	return false
}

func isBlank(row Row) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
