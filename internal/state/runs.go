package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/crewkit/crewkit/pkg/models"
)

// RunStatus represents the status of a recorded crew run.
type RunStatus string

const (
	RunActive    RunStatus = "active"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded crew run.
type Run struct {
	ID          string              `json:"id"`
	CrewName    string              `json:"crew_name"`
	Process     string              `json:"process"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
	Status      RunStatus           `json:"status"`
	Replay      bool                `json:"replay"`
	FinalOutput string              `json:"final_output"`
	Usage       models.UsageMetrics `json:"usage"`
}

// CreateRun inserts a new run record.
func (db *DB) CreateRun(r *Run) error {
	_, err := db.conn.Exec(`
		INSERT INTO runs (id, crew_name, process, started_at, status, replay)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.CrewName, r.Process, formatTime(r.StartedAt), string(r.Status), boolToInt(r.Replay))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// UpdateRun updates a run's terminal fields.
func (db *DB) UpdateRun(r *Run) error {
	var finished any
	if r.FinishedAt != nil {
		finished = formatTime(*r.FinishedAt)
	}
	_, err := db.conn.Exec(`
		UPDATE runs
		SET finished_at = ?, status = ?, final_output = ?,
		    total_tokens = ?, prompt_tokens = ?, completion_tokens = ?, successful_requests = ?
		WHERE id = ?
	`, finished, string(r.Status), r.FinalOutput,
		r.Usage.TotalTokens, r.Usage.PromptTokens, r.Usage.CompletionTokens, r.Usage.SuccessfulRequests,
		r.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil if not found.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.conn.QueryRow(`
		SELECT id, crew_name, process, started_at, finished_at, status, replay,
		       final_output, total_tokens, prompt_tokens, completion_tokens, successful_requests
		FROM runs WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns lists recorded runs, most recent first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, crew_name, process, started_at, finished_at, status, replay,
		       final_output, total_tokens, prompt_tokens, completion_tokens, successful_requests
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var startedAt string
	var finishedAt sql.NullString
	var replay int

	err := s.Scan(&r.ID, &r.CrewName, &r.Process, &startedAt, &finishedAt, &r.Status, &replay,
		&r.FinalOutput, &r.Usage.TotalTokens, &r.Usage.PromptTokens, &r.Usage.CompletionTokens, &r.Usage.SuccessfulRequests)
	if err != nil {
		return nil, err
	}

	r.StartedAt, _ = parseTime(startedAt)
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err == nil {
			r.FinishedAt = &t
		}
	}
	r.Replay = replay != 0
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
