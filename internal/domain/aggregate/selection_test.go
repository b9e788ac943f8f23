package aggregate_test

import (
	"fmt"
	"testing"

	"github.com/okian/scorecard/internal/domain/aggregate"
	"github.com/okian/scorecard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGroupByCategoryPair(t *testing.T) {
	Convey("Given candidates with and without categories", t, func() {
		candidates := []model.Candidate{
			{ID: "a", MainCategory: "신규", SubCategory: "지속동행"},
			{ID: "b"},
			{ID: "c", MainCategory: "기존", SubCategory: "지속동행"},
			{ID: "d", MainCategory: "신규", SubCategory: "지속동행"},
		}
		keyFn := aggregate.DefaultCategories.CandidatePair()

		Convey("When grouping with the default key function", func() {
			groups := aggregate.GroupByCategoryPair(candidates, keyFn)

			Convey("Then a candidate without categories lands in the fallback group", func() {
				So(groups, ShouldContainKey, "신규-일시동행")
				So(groups["신규-일시동행"][0].ID, ShouldEqual, "b")
			})

			Convey("And members keep input order", func() {
				g := groups["신규-지속동행"]
				So(g, ShouldHaveLength, 2)
				So(g[0].ID, ShouldEqual, "a")
				So(g[1].ID, ShouldEqual, "d")
			})
		})

		Convey("When listing keys", func() {
			keys := aggregate.GroupKeys(candidates, keyFn)

			Convey("Then they appear in first-seen order", func() {
				So(keys, ShouldResemble, []string{"신규-지속동행", "신규-일시동행", "기존-지속동행"})
			})
		})
	})

	Convey("Given a candidate with only a main category", t, func() {
		main, sub := aggregate.DefaultCategories.Pair("기존", " ")

		Convey("Then only the missing field falls back", func() {
			So(main, ShouldEqual, "기존")
			So(sub, ShouldEqual, aggregate.DefaultSubCategory)
		})
	})
}

func TestApplyFinalSelection(t *testing.T) {
	Convey("Given an empty selection state", t, func() {
		var state model.SelectionState

		Convey("When the same candidate is selected twice in one group", func() {
			s1 := aggregate.ApplyFinalSelection(state, "c1", "신규", "일시동행", true)
			s2 := aggregate.ApplyFinalSelection(s1, "c1", "신규", "일시동행", false)

			Convey("Then exactly one entry exists with the last value", func() {
				So(s2.Groups, ShouldHaveLength, 1)
				So(s2.Groups[0].Entries, ShouldHaveLength, 1)
				So(s2.Groups[0].Entries[0].Selected, ShouldBeFalse)
			})

			Convey("And earlier states are untouched", func() {
				So(state.Groups, ShouldBeEmpty)
				So(s1.Groups[0].Entries[0].Selected, ShouldBeTrue)
			})
		})

		Convey("When candidates are selected in different groups", func() {
			s := aggregate.ApplyFinalSelection(state, "c1", "신규", "일시동행", true)
			s = aggregate.ApplyFinalSelection(s, "c2", "기존", "지속동행", true)
			s = aggregate.ApplyFinalSelection(s, "c3", "신규", "일시동행", false)

			Convey("Then groups are created in order", func() {
				So(s.Groups, ShouldHaveLength, 2)
				So(s.Groups[0].Key, ShouldEqual, "신규-일시동행")
				So(s.Groups[1].Key, ShouldEqual, "기존-지속동행")
				So(s.Groups[0].Entries, ShouldHaveLength, 2)
			})

			Convey("And the final list only holds selected entries", func() {
				final := aggregate.FinalSelectedCandidates(s)
				So(final, ShouldHaveLength, 2)
				So(final[0].CandidateID, ShouldEqual, "c1")
				So(final[1].CandidateID, ShouldEqual, "c2")
			})
		})
	})
}

func TestSuggestAndOverlay(t *testing.T) {
	Convey("Given computed results", t, func() {
		results := []model.CandidateResult{
			{CandidateID: "c1", AverageScore: 90, Selected: true},
			{CandidateID: "c2", MainCategory: "기존", SubCategory: "지속동행", AverageScore: 60},
		}
		suggested := aggregate.SuggestSelections(results, aggregate.DefaultCategories)

		Convey("Then the suggestion follows the threshold verdict", func() {
			So(suggested.Groups, ShouldHaveLength, 2)
			So(suggested.Groups[0].Key, ShouldEqual, "신규-일시동행")
			So(suggested.Groups[0].Entries[0].Selected, ShouldBeTrue)
			So(suggested.Groups[1].Entries[0].Selected, ShouldBeFalse)
		})

		Convey("When curated entries are overlaid", func() {
			curated := []model.SelectionEntry{
				{CandidateID: "c2", MainCategory: "기존", SubCategory: "지속동행", Selected: true},
				{CandidateID: "c1", MainCategory: "기존", SubCategory: "지속동행", Selected: false},
				{CandidateID: "gone", MainCategory: "신규", SubCategory: "일시동행", Selected: true},
			}
			state := aggregate.OverlaySelections(suggested, curated)

			Convey("Then matching entries override the suggestion", func() {
				So(state.Groups[1].Entries[0].Selected, ShouldBeTrue)
			})

			Convey("And stale or unknown entries are ignored", func() {
				So(state.Groups, ShouldHaveLength, 2)
				So(state.Groups[0].Entries, ShouldHaveLength, 1)
				So(state.Groups[0].Entries[0].Selected, ShouldBeTrue)
			})

			Convey("And the suggested state is left untouched", func() {
				So(suggested.Groups[1].Entries[0].Selected, ShouldBeFalse)
			})
		})
	})

	Convey("Given a candidate listed twice in one group", t, func() {
		results := []model.CandidateResult{
			{CandidateID: "c1", Selected: true},
			{CandidateID: "c2"},
			{CandidateID: "c1"},
		}
		state := aggregate.SuggestSelections(results, aggregate.DefaultCategories)

		Convey("Then it keeps its first position and last verdict", func() {
			So(state.Groups, ShouldHaveLength, 1)
			So(state.Groups[0].Entries, ShouldHaveLength, 2)
			So(state.Groups[0].Entries[0].CandidateID, ShouldEqual, "c1")
			So(state.Groups[0].Entries[0].Selected, ShouldBeFalse)
		})
	})

	Convey("Given many candidates across a few category pairs", t, func() {
		pairs := [][2]string{{"신규", "일시동행"}, {"기존", "지속동행"}, {"재참여", "단독"}}
		results := make([]model.CandidateResult, 3000)
		for i := range results {
			p := pairs[i%len(pairs)]
			results[i] = model.CandidateResult{CandidateID: fmt.Sprintf("c%04d", i), MainCategory: p[0], SubCategory: p[1], Selected: i%2 == 0}
		}
		state := aggregate.SuggestSelections(results, aggregate.DefaultCategories)

		Convey("Then it matches upserting each result one at a time", func() {
			var want model.SelectionState
			for _, r := range results {
				want = aggregate.ApplyFinalSelection(want, r.CandidateID, r.MainCategory, r.SubCategory, r.Selected)
			}
			So(state, ShouldResemble, want)
			So(aggregate.FinalSelectedCandidates(state), ShouldHaveLength, 1500)
		})
	})
}
