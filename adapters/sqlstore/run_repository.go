package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"powersim/domain/core"
	"powersim/domain/power"
	"powersim/internal/errors"
	"powersim/ports"

	"github.com/jmoiron/sqlx"
)

const defaultListLimit = 100

// RunRepository implements ports.RunRepository on sqlx
type RunRepository struct {
	db *sqlx.DB
}

var _ ports.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a run repository over an open, migrated database
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

type runRow struct {
	ID           string        `db:"id"`
	Scenario     string        `db:"scenario"`
	ScenarioJSON string        `db:"scenario_json"`
	ParamsJSON   string        `db:"params_json"`
	NMin         int           `db:"n_min"`
	NMax         int           `db:"n_max"`
	NStep        int           `db:"n_step"`
	Seed         int64         `db:"seed"`
	Target       float64       `db:"target"`
	MinimumN     sql.NullInt64 `db:"minimum_n"`
	Fingerprint  string        `db:"fingerprint"`
	RuntimeMs    int64         `db:"runtime_ms"`
	CreatedAt    string        `db:"created_at"`
}

type pointRow struct {
	RunID      string  `db:"run_id"`
	N          int     `db:"n"`
	Power      float64 `db:"power"`
	Rejections int     `db:"rejections"`
	Replicates int     `db:"replicates"`
	StdError   float64 `db:"std_error"`
	CILow      float64 `db:"ci_low"`
	CIHigh     float64 `db:"ci_high"`
}

// Save stores the run and its curve in one transaction
func (r *RunRepository) Save(ctx context.Context, run *power.Run) (err error) {
	row, err := toRunRow(run)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO runs (id, scenario, scenario_json, params_json, n_min, n_max, n_step, seed, target, minimum_n, fingerprint, runtime_ms, created_at)
		VALUES (:id, :scenario, :scenario_json, :params_json, :n_min, :n_max, :n_step, :seed, :target, :minimum_n, :fingerprint, :runtime_ms, :created_at)
	`, row)
	if err != nil {
		return errors.DatabaseError("insert run", err)
	}

	for _, p := range run.Curve.Points {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO run_points (run_id, n, power, rejections, replicates, std_error, ci_low, ci_high)
			VALUES (:run_id, :n, :power, :rejections, :replicates, :std_error, :ci_low, :ci_high)
		`, pointRow{
			RunID: row.ID, N: p.N, Power: p.Power, Rejections: p.Rejections, Replicates: p.Replicates,
			StdError: p.StdError, CILow: p.CILow, CIHigh: p.CIHigh,
		})
		if err != nil {
			return errors.DatabaseError(fmt.Sprintf("insert point n=%d", p.N), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.DatabaseError("commit run", err)
	}
	return nil
}

// Get loads a run with its curve
func (r *RunRepository) Get(ctx context.Context, id core.RunID) (*power.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, scenario, scenario_json, params_json, n_min, n_max, n_step, seed, target, minimum_n, fingerprint, runtime_ms, created_at
		FROM runs WHERE id = ?`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, errors.DatabaseError("select run", err)
	}

	var points []pointRow
	err = r.db.SelectContext(ctx, &points, r.db.Rebind(`
		SELECT run_id, n, power, rejections, replicates, std_error, ci_low, ci_high
		FROM run_points WHERE run_id = ? ORDER BY n`), id.String())
	if err != nil {
		return nil, errors.DatabaseError("select run points", err)
	}

	return fromRows(row, points)
}

// List returns run summaries, newest first
func (r *RunRepository) List(ctx context.Context, filters ports.RunFilters) ([]power.RunSummary, error) {
	var (
		where []string
		args  []interface{}
	)
	if filters.Scenario != "" {
		where = append(where, "scenario = ?")
		args = append(args, filters.Scenario)
	}

	query := "SELECT id, scenario, scenario_json, params_json, n_min, n_max, n_step, seed, target, minimum_n, fingerprint, runtime_ms, created_at FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, max(filters.Offset, 0))

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("list runs", err)
	}

	out := make([]power.RunSummary, 0, len(rows))
	for _, row := range rows {
		createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		if err != nil {
			return nil, errors.DatabaseError("parse created_at", err)
		}
		out = append(out, power.RunSummary{
			ID:          core.RunID(row.ID),
			Scenario:    row.Scenario,
			Target:      row.Target,
			MinimumN:    nullableInt(row.MinimumN),
			Fingerprint: core.Hash(row.Fingerprint),
			CreatedAt:   createdAt,
		})
	}
	return out, nil
}

func toRunRow(run *power.Run) (runRow, error) {
	scenarioJSON, err := json.Marshal(run.Scenario)
	if err != nil {
		return runRow{}, fmt.Errorf("encode scenario: %w", err)
	}
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return runRow{}, fmt.Errorf("encode params: %w", err)
	}

	row := runRow{
		ID:           run.ID.String(),
		Scenario:     run.Scenario.Name,
		ScenarioJSON: string(scenarioJSON),
		ParamsJSON:   string(paramsJSON),
		NMin:         run.Range.Min,
		NMax:         run.Range.Max,
		NStep:        run.Range.Step,
		Seed:         run.Seed,
		Target:       run.Target,
		Fingerprint:  run.Fingerprint.String(),
		RuntimeMs:    run.RuntimeMs,
		CreatedAt:    run.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if run.MinimumN != nil {
		row.MinimumN = sql.NullInt64{Int64: int64(*run.MinimumN), Valid: true}
	}
	return row, nil
}

func fromRows(row runRow, points []pointRow) (*power.Run, error) {
	run := &power.Run{
		ID:          core.RunID(row.ID),
		Range:       power.SampleRange{Min: row.NMin, Max: row.NMax, Step: row.NStep},
		Seed:        row.Seed,
		Target:      row.Target,
		MinimumN:    nullableInt(row.MinimumN),
		Fingerprint: core.Hash(row.Fingerprint),
		RuntimeMs:   row.RuntimeMs,
	}
	if err := json.Unmarshal([]byte(row.ScenarioJSON), &run.Scenario); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := json.Unmarshal([]byte(row.ParamsJSON), &run.Params); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	run.CreatedAt = createdAt

	run.Curve = power.Curve{Scenario: row.Scenario, Points: make([]power.Estimate, len(points))}
	for i, p := range points {
		run.Curve.Points[i] = power.Estimate{
			N: p.N, Power: p.Power, Rejections: p.Rejections, Replicates: p.Replicates,
			StdError: p.StdError, CILow: p.CILow, CIHigh: p.CIHigh,
		}
	}
	return run, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
