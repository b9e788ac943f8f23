package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/rubric"
	"github.com/okian/scorecard/pkg/logger"
)

// SettingEvaluationTitle names the setting shown as the report title.
const SettingEvaluationTitle = "evaluation_title"

const defaultReportTitle = "Evaluation results"

// ListCategories returns every rubric category.
func (s *Service) ListCategories(ctx context.Context) ([]model.EvaluationCategory, error) {
	return s.store.ListCategories(ctx)
}

// SaveCategory creates or replaces a category. An empty id is generated.
func (s *Service) SaveCategory(ctx context.Context, c model.EvaluationCategory) (model.EvaluationCategory, error) {
	if c.Type == "" {
		c.Type = model.CategoryMain
	}
	if err := s.check(c); err != nil {
		return model.EvaluationCategory{}, err
	}
	if c.ID == "" {
		c.ID = s.newID()
	}
	if err := s.store.UpsertCategory(ctx, c); err != nil {
		return model.EvaluationCategory{}, err
	}
	return c, nil
}

// DeleteCategory removes a category. Its items stay and become uncategorised.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.CategoryID != id {
			continue
		}
		it.CategoryID = ""
		if err := s.store.UpsertItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

// ListItems returns every rubric item.
func (s *Service) ListItems(ctx context.Context) ([]model.EvaluationItem, error) {
	return s.store.ListItems(ctx)
}

// SaveItem creates or replaces an item. The category, when set, must exist.
// Totals of already submitted sessions are not recalculated.
func (s *Service) SaveItem(ctx context.Context, it model.EvaluationItem) (model.EvaluationItem, error) {
	if err := s.check(it); err != nil {
		return model.EvaluationItem{}, err
	}
	if it.CategoryID != "" {
		cats, err := s.store.ListCategories(ctx)
		if err != nil {
			return model.EvaluationItem{}, err
		}
		found := false
		for _, c := range cats {
			if c.ID == it.CategoryID {
				found = true
				break
			}
		}
		if !found {
			return model.EvaluationItem{}, invalid("unknown category %q", it.CategoryID)
		}
	}
	if it.ID == "" {
		it.ID = s.newID()
	}
	if err := s.store.UpsertItem(ctx, it); err != nil {
		return model.EvaluationItem{}, err
	}
	return it, nil
}

// DeleteItem removes an item together with every score given on it.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return s.store.DeleteItem(ctx, id)
}

// SaveTemplate validates and stores a YAML rubric template under name, or
// under the template's own name when name is empty.
func (s *Service) SaveTemplate(ctx context.Context, name string, body []byte) (model.Template, error) {
	tpl, err := rubric.Parse(body)
	if err != nil {
		return model.Template{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = tpl.Name
	}
	t := model.Template{Name: name, Body: string(body), UpdatedAt: s.now().UTC()}
	if err := s.store.SaveTemplate(ctx, t); err != nil {
		return model.Template{}, err
	}
	return t, nil
}

// CaptureTemplate stores the currently active rubric as a template.
func (s *Service) CaptureTemplate(ctx context.Context, name string) (model.Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Template{}, invalid("template name required")
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return model.Template{}, err
	}
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return model.Template{}, err
	}
	tpl := rubric.FromEntities(name, cats, items)
	if err := tpl.Validate(); err != nil {
		return model.Template{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	body, err := tpl.Encode()
	if err != nil {
		return model.Template{}, err
	}
	t := model.Template{Name: name, Body: string(body), UpdatedAt: s.now().UTC()}
	if err := s.store.SaveTemplate(ctx, t); err != nil {
		return model.Template{}, err
	}
	return t, nil
}

// ListTemplates returns all stored templates.
func (s *Service) ListTemplates(ctx context.Context) ([]model.Template, error) {
	return s.store.ListTemplates(ctx)
}

// GetTemplate returns one stored template.
func (s *Service) GetTemplate(ctx context.Context, name string) (model.Template, error) {
	return s.store.GetTemplate(ctx, name)
}

// AppliedTemplate reports what ApplyTemplate wrote.
type AppliedTemplate struct {
	Name       string  `json:"name"`
	Categories int     `json:"categories"`
	Items      int     `json:"items"`
	MaxTotal   float64 `json:"max_total"`
}

// ApplyTemplate creates or replaces the template's categories and items.
// Existing entries with other ids are left untouched.
func (s *Service) ApplyTemplate(ctx context.Context, name string) (AppliedTemplate, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ApplyTemplate",
		trace.WithAttributes(attribute.String("template.name", name)))
	defer span.End()

	stored, err := s.store.GetTemplate(ctx, name)
	if err != nil {
		return AppliedTemplate{}, err
	}
	tpl, err := rubric.Parse([]byte(stored.Body))
	if err != nil {
		span.RecordError(err)
		return AppliedTemplate{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	cats, items := tpl.Entities(s.newID)
	for _, c := range cats {
		if err := s.store.UpsertCategory(ctx, c); err != nil {
			return AppliedTemplate{}, err
		}
	}
	for _, it := range items {
		if err := s.store.UpsertItem(ctx, it); err != nil {
			return AppliedTemplate{}, err
		}
	}
	s.logger.Info(ctx, "rubric template applied",
		logger.String("template", name),
		logger.Int("categories", len(cats)),
		logger.Int("items", len(items)),
	)
	return AppliedTemplate{Name: name, Categories: len(cats), Items: len(items), MaxTotal: tpl.MaxTotal()}, nil
}

// Settings returns all system configuration values.
func (s *Service) Settings(ctx context.Context) ([]model.Setting, error) {
	return s.store.ListSettings(ctx)
}

// PutSetting stores one system configuration value.
func (s *Service) PutSetting(ctx context.Context, key, value string) (model.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return model.Setting{}, invalid("setting key required")
	}
	if err := s.store.PutSetting(ctx, key, value); err != nil {
		return model.Setting{}, err
	}
	return model.Setting{Key: key, Value: value}, nil
}

// settingOr returns the stored value of key, or def when unset.
func (s *Service) settingOr(ctx context.Context, key, def string) (string, error) {
	v, err := s.store.GetSetting(ctx, key)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && v == "") {
		return def, nil
	}
	return v, err
}
