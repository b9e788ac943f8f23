package aggregate

import (
	"strings"

	"github.com/okian/scorecard/internal/domain/model"
)

// Fallback category labels used when a candidate has none.
const (
	DefaultMainCategory = "신규"
	DefaultSubCategory  = "일시동행"
)

// CategoryDefaults holds the labels substituted for absent category fields.
type CategoryDefaults struct {
	Main string
	Sub  string
}

// DefaultCategories are the documented fallback labels.
var DefaultCategories = CategoryDefaults{Main: DefaultMainCategory, Sub: DefaultSubCategory}

// Pair resolves a (main, sub) pair, substituting the fallback for each blank field.
func (d CategoryDefaults) Pair(main, sub string) (string, string) {
	main, sub = strings.TrimSpace(main), strings.TrimSpace(sub)
	if main == "" {
		main = d.Main
	}
	if sub == "" {
		sub = d.Sub
	}
	return main, sub
}

// CandidatePair returns a key function for candidates using d for absent fields.
func (d CategoryDefaults) CandidatePair() func(model.Candidate) (string, string) {
	return func(c model.Candidate) (string, string) {
		return d.Pair(c.MainCategory, c.SubCategory)
	}
}

// CategoryKey formats the group key of a category pair.
func CategoryKey(main, sub string) string {
	return main + "-" + sub
}

// GroupByCategoryPair buckets items by "{main}-{sub}". Order within a bucket
// follows input order.
func GroupByCategoryPair[T any](items []T, keyFn func(T) (string, string)) map[string][]T {
	groups := make(map[string][]T)
	for _, it := range items {
		key := CategoryKey(keyFn(it))
		groups[key] = append(groups[key], it)
	}
	return groups
}

// GroupKeys returns the distinct group keys in first-seen order.
func GroupKeys[T any](items []T, keyFn func(T) (string, string)) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, it := range items {
		key := CategoryKey(keyFn(it))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// ApplyFinalSelection returns a new state with candidateID's flag set inside the
// (main, sub) group, creating the group if needed. A candidate appears at most
// once per group. The input state is not modified.
func ApplyFinalSelection(state model.SelectionState, candidateID, mainCategory, subCategory string, isSelected bool) model.SelectionState {
	next := cloneState(state)
	key := CategoryKey(mainCategory, subCategory)
	entry := model.SelectionEntry{
		CandidateID:  candidateID,
		MainCategory: mainCategory,
		SubCategory:  subCategory,
		Selected:     isSelected,
	}

	for gi := range next.Groups {
		g := &next.Groups[gi]
		if g.Key != key {
			continue
		}
		for ei := range g.Entries {
			if g.Entries[ei].CandidateID == candidateID {
				g.Entries[ei] = entry
				return next
			}
		}
		g.Entries = append(g.Entries, entry)
		return next
	}

	next.Groups = append(next.Groups, model.SelectionGroup{
		Key:          key,
		MainCategory: mainCategory,
		SubCategory:  subCategory,
		Entries:      []model.SelectionEntry{entry},
	})
	return next
}

// FinalSelectedCandidates flattens all groups and keeps selected entries.
func FinalSelectedCandidates(state model.SelectionState) []model.SelectionEntry {
	var out []model.SelectionEntry
	for _, g := range state.Groups {
		for _, e := range g.Entries {
			if e.Selected {
				out = append(out, e)
			}
		}
	}
	return out
}

// SuggestSelections builds the default state from computed results: every
// candidate is placed in its category group with the threshold verdict. A
// candidate listed twice keeps its first position and its last verdict.
func SuggestSelections(results []model.CandidateResult, defaults CategoryDefaults) model.SelectionState {
	var state model.SelectionState
	groupAt := make(map[string]int)
	entryAt := make(map[string]slot, len(results))
	for _, r := range results {
		main, sub := defaults.Pair(r.MainCategory, r.SubCategory)
		key := CategoryKey(main, sub)
		entry := model.SelectionEntry{CandidateID: r.CandidateID, MainCategory: main, SubCategory: sub, Selected: r.Selected}

		gi, ok := groupAt[key]
		if !ok {
			gi = len(state.Groups)
			groupAt[key] = gi
			state.Groups = append(state.Groups, model.SelectionGroup{Key: key, MainCategory: main, SubCategory: sub})
		}
		g := &state.Groups[gi]
		member := key + "\x00" + r.CandidateID
		if at, ok := entryAt[member]; ok {
			g.Entries[at.entry] = entry
			continue
		}
		entryAt[member] = slot{group: gi, entry: len(g.Entries)}
		g.Entries = append(g.Entries, entry)
	}
	return state
}

// OverlaySelections applies curated entries onto a suggested state. Entries
// whose candidate is absent from the suggestion, or now sits in a different
// category group, are dropped. The suggested state is not modified.
func OverlaySelections(suggested model.SelectionState, curated []model.SelectionEntry) model.SelectionState {
	state := cloneState(suggested)
	entryAt := make(map[string]slot)
	for gi, g := range state.Groups {
		for ei, e := range g.Entries {
			entryAt[e.CandidateID] = slot{group: gi, entry: ei}
		}
	}
	for _, e := range curated {
		at, ok := entryAt[e.CandidateID]
		if !ok || state.Groups[at.group].Key != CategoryKey(e.MainCategory, e.SubCategory) {
			continue
		}
		state.Groups[at.group].Entries[at.entry].Selected = e.Selected
	}
	return state
}

// slot locates an entry inside a SelectionState.
type slot struct{ group, entry int }

func cloneState(state model.SelectionState) model.SelectionState {
	out := model.SelectionState{Groups: make([]model.SelectionGroup, len(state.Groups))}
	for i, g := range state.Groups {
		g.Entries = append([]model.SelectionEntry(nil), g.Entries...)
		out.Groups[i] = g
	}
	return out
}
