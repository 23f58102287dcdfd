package stackdb

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses recorded in modification_runs.
const (
	RunApplied  = "applied"
	RunNoChange = "no-change"
	RunAborted  = "aborted"
	RunReset    = "reset"
)

// ModificationRun is one network modification decision, kept so a stack
// records how its drop flags came to be.
type ModificationRun struct {
	RunID        string
	StartedAt    time.Time
	CriteriaJSON string
	DroppedCount int
	KeptCount    int
	Status       string
}

// RecordRun stores a modification run. An empty RunID gets a fresh
// UUID, which is also written back to the struct.
func (db *DB) RecordRun(run *ModificationRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := db.Exec(`
		INSERT INTO modification_runs (run_id, started_at, criteria_json, dropped_count, kept_count, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.RunID, run.StartedAt.Format(time.RFC3339), run.CriteriaJSON, run.DroppedCount, run.KeptCount, run.Status)
	if err != nil {
		return fmt.Errorf("failed to record modification run: %w", err)
	}
	return nil
}

// Runs returns the most recent modification runs, newest first. A
// non-positive limit returns everything.
func (db *DB) Runs(limit int) ([]ModificationRun, error) {
	query := `
		SELECT run_id, started_at, criteria_json, dropped_count, kept_count, status
		FROM modification_runs
		ORDER BY started_at DESC, run_id
	`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query modification runs: %w", err)
	}
	defer rows.Close()

	var runs []ModificationRun
	for rows.Next() {
		var run ModificationRun
		var started string
		if err := rows.Scan(&run.RunID, &started, &run.CriteriaJSON, &run.DroppedCount, &run.KeptCount, &run.Status); err != nil {
			return nil, fmt.Errorf("failed to scan modification run: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339, started)
		if err != nil {
			return nil, fmt.Errorf("modification run %s has malformed timestamp %q", run.RunID, started)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read modification runs: %w", err)
	}
	return runs, nil
}
