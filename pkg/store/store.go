// Package store persists execution history and generated plans in a local
// SQLite database. Execution outcomes feed the historical-failure constraint
// on the next planning pass; plans are kept for audit trail and display.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nogap/remedy/pkg/input"
	"github.com/nogap/remedy/pkg/planfile"
)

const defaultDBName = "remedy.db"

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS execution_outcomes (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	policy_id          TEXT NOT NULL,
	timestamp          TIMESTAMP NOT NULL,
	success            INTEGER NOT NULL,
	error_message      TEXT,
	rollback_available INTEGER NOT NULL,
	duration_ms        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_policy ON execution_outcomes(policy_id);

CREATE TABLE IF NOT EXISTS plans (
	plan_id      TEXT PRIMARY KEY,
	generated_at TIMESTAMP NOT NULL,
	goal_kind    TEXT NOT NULL,
	step_count   INTEGER NOT NULL,
	is_approved  INTEGER NOT NULL,
	document     TEXT NOT NULL
);
`

// Store wraps the SQLite database holding execution history and plans.
type Store struct {
	DB *sql.DB
}

// Open opens (and initializes if needed) the store under the given workspace
// directory, with foreign keys on.
func Open(workspace string) (*Store, error) {
	if workspace == "" {
		workspace = "."
	}
	dir := filepath.Join(workspace, ".remedy")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", filepath.Join(dir, defaultDBName))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}
	return &Store{DB: conn}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// RecordOutcome appends one remediation attempt to the execution history.
func (s *Store) RecordOutcome(ctx context.Context, o input.ExecutionOutcome) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO execution_outcomes(policy_id,timestamp,success,error_message,rollback_available,duration_ms) VALUES (?,?,?,?,?,?)`,
		o.PolicyID, o.Timestamp, o.Success, o.ErrorMessage, o.RollbackAvailable, o.DurationMS)
	return err
}

// Outcomes returns all recorded attempts for one policy, newest first.
func (s *Store) Outcomes(ctx context.Context, policyID string) ([]input.ExecutionOutcome, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT policy_id,timestamp,success,COALESCE(error_message,''),rollback_available,duration_ms
		 FROM execution_outcomes WHERE policy_id=? ORDER BY timestamp DESC`, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []input.ExecutionOutcome
	for rows.Next() {
		var o input.ExecutionOutcome
		if err := rows.Scan(&o.PolicyID, &o.Timestamp, &o.Success, &o.ErrorMessage, &o.RollbackAvailable, &o.DurationMS); err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

// History returns the full execution history in insertion order, suitable
// for feeding a PlannerInput snapshot.
func (s *Store) History(ctx context.Context) ([]input.ExecutionOutcome, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT policy_id,timestamp,success,COALESCE(error_message,''),rollback_available,duration_ms
		 FROM execution_outcomes ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []input.ExecutionOutcome
	for rows.Next() {
		var o input.ExecutionOutcome
		if err := rows.Scan(&o.PolicyID, &o.Timestamp, &o.Success, &o.ErrorMessage, &o.RollbackAvailable, &o.DurationMS); err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

// FailureCounts returns the number of failed attempts per policy.
func (s *Store) FailureCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT policy_id, COUNT(*) FROM execution_outcomes WHERE success=0 GROUP BY policy_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// SavePlan upserts a plan document, so approval-state changes on the same
// plan overwrite the stored copy.
func (s *Store) SavePlan(ctx context.Context, plan *planfile.Plan) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to serialize plan: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO plans(plan_id,generated_at,goal_kind,step_count,is_approved,document) VALUES (?,?,?,?,?,?)
		 ON CONFLICT(plan_id) DO UPDATE SET is_approved=excluded.is_approved, step_count=excluded.step_count, document=excluded.document`,
		plan.PlanID, plan.GeneratedAt, string(plan.Goal.Kind), len(plan.Steps), plan.IsApproved, string(doc))
	return err
}

// LatestPlan returns the most recently generated plan, or ErrNotFound.
func (s *Store) LatestPlan(ctx context.Context) (*planfile.Plan, error) {
	var doc string
	err := s.DB.QueryRowContext(ctx,
		`SELECT document FROM plans ORDER BY generated_at DESC LIMIT 1`).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var plan planfile.Plan
	if err := json.Unmarshal([]byte(doc), &plan); err != nil {
		return nil, fmt.Errorf("failed to deserialize stored plan: %w", err)
	}
	return &plan, nil
}

// DeletePlan removes a stored plan document.
func (s *Store) DeletePlan(ctx context.Context, planID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM plans WHERE plan_id=?`, planID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PlanSummary is one row of stored plan history.
type PlanSummary struct {
	PlanID      string
	GeneratedAt time.Time
	GoalKind    string
	StepCount   int
	IsApproved  bool
}

// PlanHistory lists stored plans, newest first.
func (s *Store) PlanHistory(ctx context.Context, limit int) ([]PlanSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT plan_id,generated_at,goal_kind,step_count,is_approved FROM plans ORDER BY generated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []PlanSummary
	for rows.Next() {
		var p PlanSummary
		if err := rows.Scan(&p.PlanID, &p.GeneratedAt, &p.GoalKind, &p.StepCount, &p.IsApproved); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
