package rubric_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/rubric"
	. "github.com/smartystreets/goconvey/convey"
)

const sample = `
name: 2026 panel
categories:
  - id: plan
    name: 사업계획
    items:
      - id: plan-1
        name: 계획의 구체성
        max_score: 20
      - name: 예산의 적정성
        max_score: 10
        weight: 2
  - name: 수행역량
    type: sub
    sort_order: 5
    items:
      - name: 인력
        max_score: 30
        weight: 0.5
`

func counter() func() string {
	n := 0
	return func() string {
		n++
		return "gen-" + strconv.Itoa(n)
	}
}

func TestParse(t *testing.T) {
	Convey("Given a valid template", t, func() {
		tpl, err := rubric.Parse([]byte(sample))
		So(err, ShouldBeNil)

		Convey("Then it decodes all categories and items", func() {
			So(tpl.Name, ShouldEqual, "2026 panel")
			So(len(tpl.Categories), ShouldEqual, 2)
			So(len(tpl.Categories[0].Items), ShouldEqual, 2)
		})

		Convey("Then the maximum total honours weights", func() {
			So(tpl.MaxTotal(), ShouldAlmostEqual, 20+10*2+30*0.5, 1e-9)
		})

		Convey("When expanded into entities", func() {
			cats, items := tpl.Entities(counter())

			Convey("Then explicit ids are kept and missing ones generated", func() {
				So(cats[0].ID, ShouldEqual, "plan")
				So(cats[1].ID, ShouldEqual, "gen-2")
				So(items[0].ID, ShouldEqual, "plan-1")
				So(items[1].ID, ShouldEqual, "gen-1")
				So(items[2].CategoryID, ShouldEqual, "gen-2")
			})

			Convey("Then defaults are filled in", func() {
				So(cats[0].Type, ShouldEqual, model.CategoryMain)
				So(cats[0].SortOrder, ShouldEqual, 1)
				So(cats[1].SortOrder, ShouldEqual, 5)
				So(items[0].Weight, ShouldEqual, 1)
				So(items[1].SortOrder, ShouldEqual, 2)
				So(items[0].Active, ShouldBeTrue)
			})

			Convey("Then capturing them again round-trips the structure", func() {
				back := rubric.FromEntities("copy", cats, items)
				So(len(back.Categories), ShouldEqual, 2)
				So(back.MaxTotal(), ShouldAlmostEqual, tpl.MaxTotal(), 1e-9)

				body, err := back.Encode()
				So(err, ShouldBeNil)
				again, err := rubric.Parse(body)
				So(err, ShouldBeNil)
				So(again.Name, ShouldEqual, "copy")
			})
		})
	})

	Convey("Given invalid templates", t, func() {
		bad := map[string]string{
			"empty":          "",
			"not yaml":       "name: [",
			"unknown key":    "name: x\ncolour: red\ncategories: [{name: a, items: []}]",
			"no categories":  "name: x\ncategories: []",
			"zero max score": "name: x\ncategories: [{name: a, items: [{name: i, max_score: 0}]}]",
			"negative weight": "name: x\ncategories: [{name: a, items: [{name: i, max_score: 5, weight: -1}]}]",
			"duplicate item": "name: x\ncategories: [{name: a, items: [{id: i, name: i, max_score: 5}, {id: i, name: j, max_score: 5}]}]",
			"bad type":       "name: x\ncategories: [{name: a, type: other, items: []}]",
		}
		for label, doc := range bad {
			Convey("Then "+label+" is rejected", func() {
				_, err := rubric.Parse([]byte(doc))
				So(errors.Is(err, rubric.ErrInvalidTemplate), ShouldBeTrue)
			})
		}
	})
}

func TestFromEntitiesSkipsInactive(t *testing.T) {
	Convey("Given a rubric with an inactive category", t, func() {
		cats := []model.EvaluationCategory{
			{ID: "a", Name: "A", Active: true},
			{ID: "b", Name: "B", Active: false},
		}
		items := []model.EvaluationItem{
			{ID: "1", CategoryID: "a", Name: "one", MaxScore: 10, Weight: 1, Active: true},
			{ID: "2", CategoryID: "b", Name: "two", MaxScore: 10, Weight: 1, Active: true},
			{ID: "3", CategoryID: "a", Name: "three", MaxScore: 10, Weight: 1, Active: false},
		}

		tpl := rubric.FromEntities("t", cats, items)

		Convey("Then only active items under active categories remain", func() {
			So(len(tpl.Categories), ShouldEqual, 1)
			So(len(tpl.Categories[0].Items), ShouldEqual, 1)
			So(tpl.Categories[0].Items[0].ID, ShouldEqual, "1")
		})
	})
}
