package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

//go:embed schema.sql
var schema string

// SQLStore is a Store backed by an SQLite database.
type SQLStore struct {
	db           *sql.DB
	log          logger.Logger
	now          func() time.Time
	maxOpenConns int
	generation   atomic.Uint64
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database, applies the schema and returns a ready store.
// driver is "sqlite" (modernc.org/sqlite) or "sqlite3" (mattn/go-sqlite3).
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		now:          time.Now,
		maxOpenConns: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("repository")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	s.db = db

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s.log.Info(ctx, "store opened", logger.String("driver", driver))
	return s, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WriteGeneration returns the number of successful mutations so far.
func (s *SQLStore) WriteGeneration() uint64 {
	return s.generation.Load()
}

// observe records the latency of a store operation.
func observe(op string, start time.Time) {
	metrics.RecordStoreQueryLatency(op, float64(time.Since(start).Microseconds())/1000.0)
}

// exec runs a mutation and bumps the write generation on success.
func (s *SQLStore) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	defer observe(op, time.Now())
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		metrics.RecordErrorByComponent("repository", op)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.generation.Add(1)
	return res, nil
}

// execOne is exec for statements that must touch exactly one row.
func (s *SQLStore) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.exec(ctx, op, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (s *SQLStore) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t
}

type scanner interface {
	Scan(dest ...any) error
}

// ---- candidates ----

const candidateColumns = "id, name, department, position, main_category, sub_category, active, sort_order, created_at"

func scanCandidate(row scanner) (model.Candidate, error) {
	var c model.Candidate
	var created int64
	err := row.Scan(&c.ID, &c.Name, &c.Department, &c.Position, &c.MainCategory, &c.SubCategory, &c.Active, &c.SortOrder, &created)
	c.CreatedAt = fromMillis(created)
	return c, err
}

func (s *SQLStore) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	defer observe("list_candidates", time.Now())
	rows, err := s.db.QueryContext(ctx, "SELECT "+candidateColumns+" FROM candidates ORDER BY sort_order, id")
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetCandidate(ctx context.Context, id string) (model.Candidate, error) {
	defer observe("get_candidate", time.Now())
	c, err := scanCandidate(s.db.QueryRowContext(ctx, "SELECT "+candidateColumns+" FROM candidates WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Candidate{}, fmt.Errorf("candidate %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Candidate{}, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

func (s *SQLStore) UpsertCandidate(ctx context.Context, c model.Candidate) error {
	_, err := s.exec(ctx, "upsert_candidate", `
		INSERT INTO candidates (`+candidateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			department = excluded.department,
			position = excluded.position,
			main_category = excluded.main_category,
			sub_category = excluded.sub_category,
			active = excluded.active,
			sort_order = excluded.sort_order`,
		c.ID, c.Name, c.Department, c.Position, c.MainCategory, c.SubCategory, c.Active, c.SortOrder, millis(s.stamp(c.CreatedAt)))
	return err
}

func (s *SQLStore) DeleteCandidate(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete_candidate", "DELETE FROM candidates WHERE id = ?", id)
}

// ---- evaluators ----

const evaluatorColumns = "id, name, department, role, active, access_code, created_at"

func scanEvaluator(row scanner) (model.Evaluator, error) {
	var e model.Evaluator
	var role string
	var created int64
	err := row.Scan(&e.ID, &e.Name, &e.Department, &role, &e.Active, &e.AccessCode, &created)
	e.Role = model.Role(role)
	e.CreatedAt = fromMillis(created)
	return e, err
}

func (s *SQLStore) ListEvaluators(ctx context.Context) ([]model.Evaluator, error) {
	defer observe("list_evaluators", time.Now())
	rows, err := s.db.QueryContext(ctx, "SELECT "+evaluatorColumns+" FROM evaluators ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list evaluators: %w", err)
	}
	defer rows.Close()

	var out []model.Evaluator
	for rows.Next() {
		e, err := scanEvaluator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluator: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetEvaluator(ctx context.Context, id string) (model.Evaluator, error) {
	defer observe("get_evaluator", time.Now())
	e, err := scanEvaluator(s.db.QueryRowContext(ctx, "SELECT "+evaluatorColumns+" FROM evaluators WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Evaluator{}, fmt.Errorf("evaluator %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Evaluator{}, fmt.Errorf("get evaluator: %w", err)
	}
	return e, nil
}

func (s *SQLStore) GetEvaluatorByAccessCode(ctx context.Context, code string) (model.Evaluator, error) {
	defer observe("get_evaluator_by_code", time.Now())
	if code == "" {
		return model.Evaluator{}, fmt.Errorf("empty access code: %w", ErrNotFound)
	}
	e, err := scanEvaluator(s.db.QueryRowContext(ctx, "SELECT "+evaluatorColumns+" FROM evaluators WHERE access_code = ?", code))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Evaluator{}, fmt.Errorf("access code: %w", ErrNotFound)
	}
	if err != nil {
		return model.Evaluator{}, fmt.Errorf("get evaluator by code: %w", err)
	}
	return e, nil
}

func (s *SQLStore) UpsertEvaluator(ctx context.Context, e model.Evaluator) error {
	if e.AccessCode != "" {
		var holder string
		err := s.db.QueryRowContext(ctx, "SELECT id FROM evaluators WHERE access_code = ? AND id <> ?", e.AccessCode, e.ID).Scan(&holder)
		switch {
		case err == nil:
			return fmt.Errorf("access code held by %q: %w", holder, ErrConflict)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check access code: %w", err)
		}
	}
	role := e.Role
	if role == "" {
		role = model.RoleMember
	}
	_, err := s.exec(ctx, "upsert_evaluator", `
		INSERT INTO evaluators (`+evaluatorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			department = excluded.department,
			role = excluded.role,
			active = excluded.active,
			access_code = excluded.access_code`,
		e.ID, e.Name, e.Department, string(role), e.Active, e.AccessCode, millis(s.stamp(e.CreatedAt)))
	return err
}

func (s *SQLStore) DeleteEvaluator(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete_evaluator", "DELETE FROM evaluators WHERE id = ?", id)
}

// ---- categories and items ----

func (s *SQLStore) ListCategories(ctx context.Context) ([]model.EvaluationCategory, error) {
	defer observe("list_categories", time.Now())
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, type, sort_order, active FROM evaluation_categories ORDER BY sort_order, id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []model.EvaluationCategory
	for rows.Next() {
		var c model.EvaluationCategory
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &typ, &c.SortOrder, &c.Active); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = model.CategoryType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertCategory(ctx context.Context, c model.EvaluationCategory) error {
	typ := c.Type
	if typ == "" {
		typ = model.CategoryMain
	}
	_, err := s.exec(ctx, "upsert_category", `
		INSERT INTO evaluation_categories (id, name, type, sort_order, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			sort_order = excluded.sort_order,
			active = excluded.active`,
		c.ID, c.Name, string(typ), c.SortOrder, c.Active)
	return err
}

func (s *SQLStore) DeleteCategory(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete_category", "DELETE FROM evaluation_categories WHERE id = ?", id)
}

const itemColumns = "id, category_id, name, max_score, weight, sort_order, active"

func scanItem(row scanner) (model.EvaluationItem, error) {
	var it model.EvaluationItem
	err := row.Scan(&it.ID, &it.CategoryID, &it.Name, &it.MaxScore, &it.Weight, &it.SortOrder, &it.Active)
	return it, err
}

func (s *SQLStore) ListItems(ctx context.Context) ([]model.EvaluationItem, error) {
	defer observe("list_items", time.Now())
	rows, err := s.db.QueryContext(ctx, "SELECT "+itemColumns+" FROM evaluation_items ORDER BY sort_order, id")
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []model.EvaluationItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetItem(ctx context.Context, id string) (model.EvaluationItem, error) {
	defer observe("get_item", time.Now())
	it, err := scanItem(s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM evaluation_items WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.EvaluationItem{}, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.EvaluationItem{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (s *SQLStore) UpsertItem(ctx context.Context, it model.EvaluationItem) error {
	_, err := s.exec(ctx, "upsert_item", `
		INSERT INTO evaluation_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			category_id = excluded.category_id,
			name = excluded.name,
			max_score = excluded.max_score,
			weight = excluded.weight,
			sort_order = excluded.sort_order,
			active = excluded.active`,
		it.ID, it.CategoryID, it.Name, it.MaxScore, it.Weight, it.SortOrder, it.Active)
	return err
}

func (s *SQLStore) DeleteItem(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete_item", "DELETE FROM evaluation_items WHERE id = ?", id)
}

// ---- scores and sessions ----

func (s *SQLStore) UpsertScore(ctx context.Context, sc model.Score) error {
	_, err := s.exec(ctx, "upsert_score", `
		INSERT INTO scores (evaluator_id, candidate_id, item_id, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (evaluator_id, candidate_id, item_id) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		sc.EvaluatorID, sc.CandidateID, sc.ItemID, sc.Value, millis(s.stamp(sc.UpdatedAt)))
	return err
}

// filter builds a WHERE clause for optional evaluator and candidate ids.
func filter(evaluatorID, candidateID string) (string, []any) {
	var conds []string
	var args []any
	if evaluatorID != "" {
		conds = append(conds, "evaluator_id = ?")
		args = append(args, evaluatorID)
	}
	if candidateID != "" {
		conds = append(conds, "candidate_id = ?")
		args = append(args, candidateID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SQLStore) ListScores(ctx context.Context, evaluatorID, candidateID string) ([]model.Score, error) {
	defer observe("list_scores", time.Now())
	where, args := filter(evaluatorID, candidateID)
	rows, err := s.db.QueryContext(ctx,
		"SELECT evaluator_id, candidate_id, item_id, value, updated_at FROM scores"+where+
			" ORDER BY evaluator_id, candidate_id, item_id", args...)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	var out []model.Score
	for rows.Next() {
		var sc model.Score
		var updated int64
		if err := rows.Scan(&sc.EvaluatorID, &sc.CandidateID, &sc.ItemID, &sc.Value, &updated); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		sc.UpdatedAt = fromMillis(updated)
		out = append(out, sc)
	}
	return out, rows.Err()
}

const sessionColumns = "evaluator_id, candidate_id, total_score, is_completed, version, submitted_at, updated_at"

func scanSession(row scanner) (model.EvaluationSession, error) {
	var se model.EvaluationSession
	var submitted sql.NullInt64
	var updated int64
	err := row.Scan(&se.EvaluatorID, &se.CandidateID, &se.TotalScore, &se.IsCompleted, &se.Version, &submitted, &updated)
	if submitted.Valid {
		t := fromMillis(submitted.Int64)
		se.SubmittedAt = &t
	}
	se.UpdatedAt = fromMillis(updated)
	return se, err
}

func (s *SQLStore) GetSession(ctx context.Context, evaluatorID, candidateID string) (model.EvaluationSession, error) {
	defer observe("get_session", time.Now())
	se, err := scanSession(s.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM evaluation_sessions WHERE evaluator_id = ? AND candidate_id = ?",
		evaluatorID, candidateID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.EvaluationSession{}, fmt.Errorf("session %s/%s: %w", evaluatorID, candidateID, ErrNotFound)
	}
	if err != nil {
		return model.EvaluationSession{}, fmt.Errorf("get session: %w", err)
	}
	return se, nil
}

func (s *SQLStore) ListSessions(ctx context.Context, evaluatorID, candidateID string) ([]model.EvaluationSession, error) {
	defer observe("list_sessions", time.Now())
	where, args := filter(evaluatorID, candidateID)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM evaluation_sessions"+where+" ORDER BY evaluator_id, candidate_id", args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []model.EvaluationSession
	for rows.Next() {
		se, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveSession(ctx context.Context, se model.EvaluationSession) error {
	var submitted any
	if se.SubmittedAt != nil {
		submitted = millis(*se.SubmittedAt)
	}
	_, err := s.exec(ctx, "save_session", `
		INSERT INTO evaluation_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (evaluator_id, candidate_id) DO UPDATE SET
			total_score = excluded.total_score,
			is_completed = excluded.is_completed,
			version = excluded.version,
			submitted_at = excluded.submitted_at,
			updated_at = excluded.updated_at`,
		se.EvaluatorID, se.CandidateID, se.TotalScore, se.IsCompleted, se.Version, submitted, millis(s.stamp(se.UpdatedAt)))
	return err
}

// ---- assignments ----

func (s *SQLStore) SetAssignments(ctx context.Context, evaluatorID string, candidateIDs []string) error {
	defer observe("set_assignments", time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignments: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM assignments WHERE evaluator_id = ?", evaluatorID); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	for _, id := range candidateIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO assignments (evaluator_id, candidate_id) VALUES (?, ?)", evaluatorID, id); err != nil {
			return fmt.Errorf("assign %q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignments: %w", err)
	}
	s.generation.Add(1)
	return nil
}

func (s *SQLStore) ListAssignments(ctx context.Context, evaluatorID string) ([]string, error) {
	defer observe("list_assignments", time.Now())
	rows, err := s.db.QueryContext(ctx,
		"SELECT candidate_id FROM assignments WHERE evaluator_id = ? ORDER BY candidate_id", evaluatorID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListAllAssignments(ctx context.Context) (map[string][]string, error) {
	defer observe("list_all_assignments", time.Now())
	rows, err := s.db.QueryContext(ctx,
		"SELECT evaluator_id, candidate_id FROM assignments ORDER BY evaluator_id, candidate_id")
	if err != nil {
		return nil, fmt.Errorf("list all assignments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var evaluatorID, candidateID string
		if err := rows.Scan(&evaluatorID, &candidateID); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out[evaluatorID] = append(out[evaluatorID], candidateID)
	}
	return out, rows.Err()
}

// ---- final selections ----

func (s *SQLStore) ListSelections(ctx context.Context) ([]model.SelectionEntry, error) {
	defer observe("list_selections", time.Now())
	rows, err := s.db.QueryContext(ctx,
		"SELECT candidate_id, main_category, sub_category, selected FROM final_selections ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	defer rows.Close()

	var out []model.SelectionEntry
	for rows.Next() {
		var e model.SelectionEntry
		if err := rows.Scan(&e.CandidateID, &e.MainCategory, &e.SubCategory, &e.Selected); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveSelection(ctx context.Context, e model.SelectionEntry) error {
	_, err := s.exec(ctx, "save_selection", `
		INSERT INTO final_selections (main_category, sub_category, candidate_id, selected, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (main_category, sub_category, candidate_id) DO UPDATE SET
			selected = excluded.selected,
			updated_at = excluded.updated_at`,
		e.MainCategory, e.SubCategory, e.CandidateID, e.Selected, millis(s.now()))
	return err
}

func (s *SQLStore) ClearSelections(ctx context.Context) error {
	_, err := s.exec(ctx, "clear_selections", "DELETE FROM final_selections")
	return err
}

// ---- templates and settings ----

func (s *SQLStore) SaveTemplate(ctx context.Context, t model.Template) error {
	_, err := s.exec(ctx, "save_template", `
		INSERT INTO templates (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		t.Name, t.Body, millis(s.stamp(t.UpdatedAt)))
	return err
}

func (s *SQLStore) GetTemplate(ctx context.Context, name string) (model.Template, error) {
	defer observe("get_template", time.Now())
	var t model.Template
	var updated int64
	err := s.db.QueryRowContext(ctx, "SELECT name, body, updated_at FROM templates WHERE name = ?", name).
		Scan(&t.Name, &t.Body, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Template{}, fmt.Errorf("template %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return model.Template{}, fmt.Errorf("get template: %w", err)
	}
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func (s *SQLStore) ListTemplates(ctx context.Context) ([]model.Template, error) {
	defer observe("list_templates", time.Now())
	rows, err := s.db.QueryContext(ctx, "SELECT name, body, updated_at FROM templates ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		var t model.Template
		var updated int64
		if err := rows.Scan(&t.Name, &t.Body, &updated); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.UpdatedAt = fromMillis(updated)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetSetting(ctx context.Context, key string) (string, error) {
	defer observe("get_setting", time.Now())
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM system_config WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return v, nil
}

func (s *SQLStore) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.exec(ctx, "put_setting", `
		INSERT INTO system_config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SQLStore) ListSettings(ctx context.Context) ([]model.Setting, error) {
	defer observe("list_settings", time.Now())
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM system_config ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []model.Setting
	for rows.Next() {
		var st model.Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
