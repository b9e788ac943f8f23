// Package rubric reads and writes reusable rubric templates: a named set of
// evaluation categories, each holding weighted items, stored as YAML.
package rubric

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/okian/scorecard/internal/domain/model"
)

// ErrInvalidTemplate marks a template that cannot be decoded or fails validation.
var ErrInvalidTemplate = errors.New("invalid rubric template")

const defaultWeight = 1.0

var validate = validator.New()

// Template is a rubric definition.
type Template struct {
	Name       string     `yaml:"name" validate:"required"`
	Categories []Category `yaml:"categories" validate:"required,min=1,dive"`
}

// Category groups items. Items with an empty ID get one when applied.
type Category struct {
	ID        string `yaml:"id,omitempty"`
	Name      string `yaml:"name" validate:"required"`
	Type      string `yaml:"type,omitempty" validate:"omitempty,oneof=main sub grouping"`
	SortOrder int    `yaml:"sort_order,omitempty"`
	Items     []Item `yaml:"items" validate:"dive"`
}

// Item is one scored rubric line. A nil Weight means 1.
type Item struct {
	ID        string   `yaml:"id,omitempty"`
	Name      string   `yaml:"name" validate:"required"`
	MaxScore  float64  `yaml:"max_score" validate:"gt=0"`
	Weight    *float64 `yaml:"weight,omitempty" validate:"omitempty,gte=0"`
	SortOrder int      `yaml:"sort_order,omitempty"`
}

// Parse decodes and validates a YAML template. Unknown keys are rejected.
func Parse(data []byte) (Template, error) {
	var t Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return Template{}, fmt.Errorf("%w: empty document", ErrInvalidTemplate)
		}
		return Template{}, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	if err := t.Validate(); err != nil {
		return Template{}, err
	}
	return t, nil
}

// Validate checks field constraints and that explicit ids are unique.
func (t Template) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	seen := make(map[string]struct{})
	check := func(kind, id string) error {
		if id == "" {
			return nil
		}
		key := kind + "/" + id
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate %s id %q", ErrInvalidTemplate, kind, id)
		}
		seen[key] = struct{}{}
		return nil
	}
	for _, c := range t.Categories {
		if err := check("category", c.ID); err != nil {
			return err
		}
		for _, it := range c.Items {
			if err := check("item", it.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Encode renders the template as YAML.
func (t Template) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	return buf.Bytes(), nil
}

// MaxTotal is the best possible weighted session total under the template.
func (t Template) MaxTotal() float64 {
	var sum float64
	for _, c := range t.Categories {
		for _, it := range c.Items {
			sum += it.MaxScore * it.weight()
		}
	}
	return sum
}

func (it Item) weight() float64 {
	if it.Weight == nil {
		return defaultWeight
	}
	return *it.Weight
}

// Entities expands the template into active categories and items. newID
// supplies ids for entries that have none.
func (t Template) Entities(newID func() string) ([]model.EvaluationCategory, []model.EvaluationItem) {
	var cats []model.EvaluationCategory
	var items []model.EvaluationItem
	for ci, c := range t.Categories {
		id := c.ID
		if id == "" {
			id = newID()
		}
		typ := model.CategoryType(c.Type)
		if typ == "" {
			typ = model.CategoryMain
		}
		order := c.SortOrder
		if order == 0 {
			order = ci + 1
		}
		cats = append(cats, model.EvaluationCategory{ID: id, Name: c.Name, Type: typ, SortOrder: order, Active: true})

		for ii, it := range c.Items {
			itemID := it.ID
			if itemID == "" {
				itemID = newID()
			}
			itemOrder := it.SortOrder
			if itemOrder == 0 {
				itemOrder = ii + 1
			}
			items = append(items, model.EvaluationItem{
				ID:         itemID,
				CategoryID: id,
				Name:       it.Name,
				MaxScore:   it.MaxScore,
				Weight:     it.weight(),
				SortOrder:  itemOrder,
				Active:     true,
			})
		}
	}
	return cats, items
}

// FromEntities captures the active rubric as a template. Items whose category
// is missing or inactive are left out.
func FromEntities(name string, cats []model.EvaluationCategory, items []model.EvaluationItem) Template {
	t := Template{Name: name}
	index := make(map[string]int)
	for _, c := range cats {
		if !c.Active {
			continue
		}
		index[c.ID] = len(t.Categories)
		t.Categories = append(t.Categories, Category{
			ID:        c.ID,
			Name:      c.Name,
			Type:      string(c.Type),
			SortOrder: c.SortOrder,
		})
	}
	for _, it := range items {
		ci, ok := index[it.CategoryID]
		if !ok || !it.Active {
			continue
		}
		w := it.Weight
		t.Categories[ci].Items = append(t.Categories[ci].Items, Item{
			ID:        it.ID,
			Name:      it.Name,
			MaxScore:  it.MaxScore,
			Weight:    &w,
			SortOrder: it.SortOrder,
		})
	}
	return t
}
