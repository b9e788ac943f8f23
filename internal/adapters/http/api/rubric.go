package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/model"
)

// RubricDependencies manages categories, items, templates and settings.
type RubricDependencies interface {
	ListCategories(ctx context.Context) ([]model.EvaluationCategory, error)
	SaveCategory(ctx context.Context, c model.EvaluationCategory) (model.EvaluationCategory, error)
	DeleteCategory(ctx context.Context, id string) error
	ListItems(ctx context.Context) ([]model.EvaluationItem, error)
	SaveItem(ctx context.Context, it model.EvaluationItem) (model.EvaluationItem, error)
	DeleteItem(ctx context.Context, id string) error

	SaveTemplate(ctx context.Context, name string, body []byte) (model.Template, error)
	CaptureTemplate(ctx context.Context, name string) (model.Template, error)
	ListTemplates(ctx context.Context) ([]model.Template, error)
	GetTemplate(ctx context.Context, name string) (model.Template, error)
	ApplyTemplate(ctx context.Context, name string) (service.AppliedTemplate, error)

	Settings(ctx context.Context) ([]model.Setting, error)
	PutSetting(ctx context.Context, key, value string) (model.Setting, error)
}

// RubricHandler handles rubric and settings requests.
type RubricHandler struct {
	deps RubricDependencies
}

// NewRubricHandler creates a new rubric handler.
func NewRubricHandler(deps RubricDependencies) *RubricHandler {
	return &RubricHandler{deps: deps}
}

type categoryRequest struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Type      model.CategoryType `json:"type"`
	SortOrder int                `json:"sort_order"`
	Active    *bool              `json:"active"`
}

// itemRequest is the writable shape of an item. Weight defaults to 1 and
// Active to true.
type itemRequest struct {
	ID         string   `json:"id"`
	CategoryID string   `json:"category_id"`
	Name       string   `json:"name"`
	MaxScore   float64  `json:"max_score"`
	Weight     *float64 `json:"weight"`
	SortOrder  int      `json:"sort_order"`
	Active     *bool    `json:"active"`
}

type settingRequest struct {
	Value string `json:"value"`
}

type captureRequest struct {
	Name string `json:"name"`
}

// HandleListCategories handles GET /categories requests.
func (h *RubricHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListCategories(r.Context())
	if err != nil {
		fail(w, r, "api.list_categories", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

// HandleSaveCategory handles POST /categories requests; an existing id is replaced.
func (h *RubricHandler) HandleSaveCategory(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_category"
	var req categoryRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	c, err := h.deps.SaveCategory(r.Context(), model.EvaluationCategory{
		ID:        strings.TrimSpace(req.ID),
		Name:      strings.TrimSpace(req.Name),
		Type:      req.Type,
		SortOrder: req.SortOrder,
		Active:    req.Active == nil || *req.Active,
	})
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleDeleteCategory handles DELETE /categories/{id} requests.
func (h *RubricHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, "api.delete_category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListItems handles GET /items requests. Evaluators only see active items.
func (h *RubricHandler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListItems(r.Context())
	if err != nil {
		fail(w, r, "api.list_items", err)
		return
	}
	if principalFrom(r.Context()).evaluator != nil {
		active := list[:0]
		for _, it := range list {
			if it.Active {
				active = append(active, it)
			}
		}
		list = active
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

// HandleSaveItem handles POST /items requests; an existing id is replaced.
func (h *RubricHandler) HandleSaveItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_item"
	var req itemRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	weight := 1.0
	if req.Weight != nil {
		weight = *req.Weight
	}
	it, err := h.deps.SaveItem(r.Context(), model.EvaluationItem{
		ID:         strings.TrimSpace(req.ID),
		CategoryID: strings.TrimSpace(req.CategoryID),
		Name:       strings.TrimSpace(req.Name),
		MaxScore:   req.MaxScore,
		Weight:     weight,
		SortOrder:  req.SortOrder,
		Active:     req.Active == nil || *req.Active,
	})
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// HandleDeleteItem handles DELETE /items/{id} requests.
func (h *RubricHandler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteItem(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, "api.delete_item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListTemplates handles GET /templates requests.
func (h *RubricHandler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListTemplates(r.Context())
	if err != nil {
		fail(w, r, "api.list_templates", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

// HandleSaveTemplate handles POST /templates?name= requests. The body is the
// YAML template itself.
func (h *RubricHandler) HandleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_template"
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		fail(w, r, op, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	t, err := h.deps.SaveTemplate(r.Context(), r.URL.Query().Get("name"), body)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// HandleCaptureTemplate handles POST /templates/capture requests.
func (h *RubricHandler) HandleCaptureTemplate(w http.ResponseWriter, r *http.Request) {
	const op = "api.capture_template"
	var req captureRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	t, err := h.deps.CaptureTemplate(r.Context(), req.Name)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// HandleGetTemplate handles GET /templates/{name}. Clients asking for YAML
// get the raw document.
func (h *RubricHandler) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.deps.GetTemplate(r.Context(), r.PathValue("name"))
	if err != nil {
		fail(w, r, "api.get_template", err)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "yaml") {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = io.WriteString(w, t.Body)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleApplyTemplate handles POST /templates/{name}/apply requests.
func (h *RubricHandler) HandleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	applied, err := h.deps.ApplyTemplate(r.Context(), r.PathValue("name"))
	if err != nil {
		fail(w, r, "api.apply_template", err)
		return
	}
	writeJSON(w, http.StatusOK, applied)
}

// HandleListSettings handles GET /settings requests.
func (h *RubricHandler) HandleListSettings(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Settings(r.Context())
	if err != nil {
		fail(w, r, "api.list_settings", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

// HandlePutSetting handles PUT /settings/{key} requests.
func (h *RubricHandler) HandlePutSetting(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_setting"
	var req settingRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	s, err := h.deps.PutSetting(r.Context(), r.PathValue("key"), req.Value)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
