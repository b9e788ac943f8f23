// Package ingest maps spreadsheet-style candidate and evaluator lists onto
// domain entities. Column headers are matched against a table of Korean and
// English aliases after Unicode normalisation.
package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Field is a canonical import column.
type Field string

// Canonical fields.
const (
	FieldID           Field = "id"
	FieldName         Field = "name"
	FieldDepartment   Field = "department"
	FieldPosition     Field = "position"
	FieldMainCategory Field = "main_category"
	FieldSubCategory  Field = "sub_category"
	FieldSortOrder    Field = "sort_order"
	FieldRole         Field = "role"
	FieldActive       Field = "active"
)

// minFuzzyAliasLen is the shortest alias that may match with one typo.
const minFuzzyAliasLen = 5

var aliases = map[Field][]string{
	FieldName:         {"name", "이름", "성명", "기관명", "candidate"},
	FieldDepartment:   {"department", "dept", "부서", "소속"},
	FieldPosition:     {"position", "title", "직급", "직위", "직책"},
	FieldMainCategory: {"main_category", "category", "구분", "대분류"},
	FieldSubCategory:  {"sub_category", "subcategory", "세부구분", "소분류"},
	FieldID:           {"id", "번호", "코드"},
	FieldSortOrder:    {"sort_order", "order", "순번", "순서"},
	FieldRole:         {"role", "역할"},
	FieldActive:       {"active", "사용", "활성"},
}

// Mapper resolves raw column headers to canonical fields.
type Mapper struct {
	exact map[string]Field
	fuzzy []fuzzyAlias
}

type fuzzyAlias struct {
	alias string
	field Field
}

// NewMapper builds a Mapper over the built-in alias table.
func NewMapper() *Mapper {
	m := &Mapper{exact: make(map[string]Field)}
	for field, names := range aliases {
		for _, a := range names {
			key := Normalize(a)
			m.exact[key] = field
			if len(key) >= minFuzzyAliasLen && isASCII(key) {
				m.fuzzy = append(m.fuzzy, fuzzyAlias{alias: key, field: field})
			}
		}
	}
	return m
}

// Normalize folds a header to its comparison form: NFC, trimmed, case folded,
// with inner spaces and hyphens turned into underscores.
func Normalize(s string) string {
	s = norm.NFC.String(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
	s = cases.Fold().String(s) // a Caser is stateful; one per call
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	}), "_")
}

// Resolve maps a header to its field. ASCII headers one edit away from a
// long enough alias also match, unless two fields are equally close.
func (m *Mapper) Resolve(header string) (Field, bool) {
	key := Normalize(header)
	if key == "" {
		return "", false
	}
	if f, ok := m.exact[key]; ok {
		return f, true
	}
	if !isASCII(key) {
		return "", false
	}

	var match Field
	for _, fa := range m.fuzzy {
		if levenshtein.ComputeDistance(key, fa.alias) > 1 {
			continue
		}
		if match != "" && match != fa.field {
			return "", false
		}
		match = fa.field
	}
	return match, match != ""
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
