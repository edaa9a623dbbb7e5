// Package store persists planning sessions in a SQLite run journal so batch
// results can be inspected and compared after the fact.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"homeplan/internal/actions"
	"homeplan/internal/logging"
	"homeplan/internal/planner"
)

// SchemaVersion is stored in PRAGMA user_version.
const SchemaVersion = 1

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Journal records session results.
type Journal struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open creates or opens the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, dbPath: path}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Store("run journal opened at %s", path)
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.dbPath
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL DEFAULT '',
		task TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL,
		instruction TEXT NOT NULL,
		goals_json TEXT,
		success INTEGER NOT NULL,
		goal_achieved INTEGER NOT NULL,
		failed_goals_json TEXT,
		steps_executed INTEGER NOT NULL,
		total_steps INTEGER NOT NULL,
		external_calls INTEGER NOT NULL,
		repairs INTEGER NOT NULL,
		validation_attempts INTEGER NOT NULL,
		validated INTEGER NOT NULL,
		failing_step INTEGER NOT NULL,
		failing_category TEXT,
		failure_reason TEXT,
		raw_plan TEXT,
		working_steps_json TEXT,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_batch ON runs(batch_id);
	CREATE INDEX IF NOT EXISTS idx_runs_method ON runs(method);

	CREATE TABLE IF NOT EXISTS run_trace (
		run_id TEXT NOT NULL,
		step_index INTEGER NOT NULL,
		action TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		PRIMARY KEY (run_id, step_index),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS run_repairs (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		attempt INTEGER NOT NULL,
		step_index INTEGER NOT NULL,
		original TEXT NOT NULL,
		error TEXT NOT NULL,
		response TEXT,
		replacement TEXT,
		accepted INTEGER NOT NULL,
		inserted INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return err
	}

	var version int
	if err := j.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("journal schema v%d is newer than supported v%d", version, SchemaVersion)
	}
	if version < SchemaVersion {
		if _, err := j.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return err
		}
		logging.StoreDebug("journal schema migrated v%d -> v%d", version, SchemaVersion)
	}
	return nil
}

// Run is a journal row.
type Run struct {
	ID                 string
	BatchID            string
	Task               string
	Method             string
	Instruction        string
	Goals              []string
	Success            bool
	GoalAchieved       bool
	FailedGoals        []string
	StepsExecuted      int
	TotalSteps         int
	ExternalCalls      int
	Repairs            int
	ValidationAttempts int
	Validated          bool
	FailingStep        int
	FailingCategory    string
	FailureReason      string
	RawPlan            string
	WorkingSteps       []string
	Duration           time.Duration
	CreatedAt          time.Time

	// Trace and RepairHistory are filled by GetRun only.
	Trace         []planner.TraceEntry
	RepairHistory []RepairRow
}

// RepairRow is a stored repair record with actions in text form.
type RepairRow struct {
	Attempt     int
	StepIndex   int
	Original    string
	Error       string
	Response    *string
	Replacement *string
	Accepted    bool
	Inserted    bool
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func marshalList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	data, err := json.Marshal(v)
	return string(data), err
}

// Record stores res under batchID and task. Trace and repairs are written in
// the same transaction.
func (j *Journal) Record(ctx context.Context, batchID, task string, res *planner.Result) error {
	if res == nil || res.SessionID == "" {
		return fmt.Errorf("result has no session id")
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	goals, err := marshalList(res.Goals)
	if err != nil {
		return fmt.Errorf("failed to encode goals: %w", err)
	}
	failed, err := marshalList(res.FailedGoals)
	if err != nil {
		return fmt.Errorf("failed to encode failed goals: %w", err)
	}
	working, err := marshalList(actionStrings(res))
	if err != nil {
		return fmt.Errorf("failed to encode working steps: %w", err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, batch_id, task, method, instruction, goals_json, success, goal_achieved,
			failed_goals_json, steps_executed, total_steps, external_calls, repairs, validation_attempts,
			validated, failing_step, failing_category, failure_reason, raw_plan, working_steps_json,
			duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.SessionID, batchID, task, res.Method, res.Instruction, goals,
		boolInt(res.Success), boolInt(res.GoalAchieved), failed,
		res.StepsExecuted, res.TotalSteps, res.ExternalCalls, res.RepairCount(), res.ValidationAttempts,
		boolInt(res.Validated), res.FailingStep, string(res.FailingCategory), res.FailureReason,
		res.RawPlan, working, res.Duration.Milliseconds(), time.Now().UnixMilli(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to store run %s: %v", res.SessionID, err)
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, e := range res.Trace {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_trace (run_id, step_index, action, success, error) VALUES (?, ?, ?, ?, ?)`,
			res.SessionID, e.StepIndex, e.Action.String(), boolInt(e.Success), e.Error,
		); err != nil {
			return fmt.Errorf("failed to insert trace: %w", err)
		}
	}

	for i, rec := range res.RepairHistory {
		var replacement *string
		if rec.Replacement != nil {
			s := rec.Replacement.String()
			replacement = &s
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_repairs (run_id, seq, attempt, step_index, original, error, response, replacement, accepted, inserted)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.SessionID, i, rec.Attempt, rec.StepIndex, rec.Original.String(), rec.Error,
			nullable(rec.Response), nullable(replacement), boolInt(rec.Accepted), boolInt(rec.Inserted),
		); err != nil {
			return fmt.Errorf("failed to insert repair: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	logging.StoreDebug("stored run %s (%s, success=%v)", res.SessionID, res.Method, res.Success)
	return nil
}

func actionStrings(res *planner.Result) []string {
	out := make([]string, len(res.WorkingSteps))
	for i, a := range res.WorkingSteps {
		out[i] = a.String()
	}
	return out
}

const runColumns = `id, batch_id, task, method, instruction, goals_json, success, goal_achieved,
	failed_goals_json, steps_executed, total_steps, external_calls, repairs, validation_attempts,
	validated, failing_step, failing_category, failure_reason, raw_plan, working_steps_json,
	duration_ms, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r                         Run
		goals, failed, working    sql.NullString
		category, reason, rawPlan sql.NullString
		durationMs, createdAt     int64
	)
	err := row.Scan(&r.ID, &r.BatchID, &r.Task, &r.Method, &r.Instruction, &goals,
		&r.Success, &r.GoalAchieved, &failed, &r.StepsExecuted, &r.TotalSteps, &r.ExternalCalls,
		&r.Repairs, &r.ValidationAttempts, &r.Validated, &r.FailingStep, &category, &reason,
		&rawPlan, &working, &durationMs, &createdAt)
	if err != nil {
		return nil, err
	}
	r.FailingCategory = category.String
	r.FailureReason = reason.String
	r.RawPlan = rawPlan.String
	r.Duration = time.Duration(durationMs) * time.Millisecond
	r.CreatedAt = time.UnixMilli(createdAt)

	for _, f := range []struct {
		src sql.NullString
		dst *[]string
	}{{goals, &r.Goals}, {failed, &r.FailedGoals}, {working, &r.WorkingSteps}} {
		if !f.src.Valid || f.src.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.src.String), f.dst); err != nil {
			return nil, fmt.Errorf("failed to decode run %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

// GetRun loads one run with its trace and repair history.
func (j *Journal) GetRun(ctx context.Context, id string) (*Run, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	r, err := scanRun(j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if r.Trace, err = j.loadTrace(ctx, id); err != nil {
		return nil, err
	}
	if r.RepairHistory, err = j.loadRepairs(ctx, id); err != nil {
		return nil, err
	}
	return r, nil
}

func (j *Journal) loadTrace(ctx context.Context, id string) ([]planner.TraceEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT step_index, action, success, error FROM run_trace WHERE run_id = ? ORDER BY step_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []planner.TraceEntry
	for rows.Next() {
		var (
			e      planner.TraceEntry
			action string
			msg    sql.NullString
		)
		if err := rows.Scan(&e.StepIndex, &action, &e.Success, &msg); err != nil {
			return nil, err
		}
		fields := strings.SplitN(action, " ", 2)
		e.Action.Verb = actions.Verb(fields[0])
		if len(fields) == 2 {
			e.Action.Target = fields[1]
		}
		e.Error = msg.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) loadRepairs(ctx context.Context, id string) ([]RepairRow, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT attempt, step_index, original, error, response, replacement, accepted, inserted
		 FROM run_repairs WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RepairRow
	for rows.Next() {
		var (
			r                     RepairRow
			response, replacement sql.NullString
		)
		if err := rows.Scan(&r.Attempt, &r.StepIndex, &r.Original, &r.Error, &response, &replacement, &r.Accepted, &r.Inserted); err != nil {
			return nil, err
		}
		if response.Valid {
			r.Response = &response.String
		}
		if replacement.Valid {
			r.Replacement = &replacement.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Filter narrows ListRuns. Zero fields match everything.
type Filter struct {
	BatchID string
	Method  string
	Limit   int
}

// ListRuns returns runs newest first, without trace or repairs.
func (j *Journal) ListRuns(ctx context.Context, f Filter) ([]Run, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListRuns")
	defer timer.Stop()

	j.mu.RLock()
	defer j.mu.RUnlock()

	if f.Limit <= 0 {
		f.Limit = 100
	}
	var (
		where []string
		args  []any
	)
	if f.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, f.BatchID)
	}
	if f.Method != "" {
		where = append(where, "method = ?")
		args = append(args, f.Method)
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, f.Limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// MethodStats aggregates runs of one method.
type MethodStats struct {
	Method      string
	Runs        int
	Successes   int
	MeanCalls   float64
	MeanRepairs float64
}

// SuccessRate is Successes/Runs, 0 for no runs.
func (m MethodStats) SuccessRate() float64 {
	if m.Runs == 0 {
		return 0
	}
	return float64(m.Successes) / float64(m.Runs)
}

// Stats aggregates runs per method, optionally within one batch.
func (j *Journal) Stats(ctx context.Context, batchID string) ([]MethodStats, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	query := `SELECT method, COUNT(*), SUM(success), AVG(external_calls), AVG(repairs) FROM runs`
	var args []any
	if batchID != "" {
		query += " WHERE batch_id = ?"
		args = append(args, batchID)
	}
	query += " GROUP BY method ORDER BY method"

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MethodStats
	for rows.Next() {
		var m MethodStats
		if err := rows.Scan(&m.Method, &m.Runs, &m.Successes, &m.MeanCalls, &m.MeanRepairs); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
