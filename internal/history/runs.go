package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Status is the outcome of a processing run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// DefaultListLimit and MaxListLimit bound List.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Run is one recorded invocation of a file-processing route.
type Run struct {
	ID          int64         `json:"id"`
	RequestID   string        `json:"request_id,omitempty"`
	Route       string        `json:"route"`
	Tag         string        `json:"tag"`
	Status      Status        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Inputs      int           `json:"inputs"`
	Outputs     int           `json:"outputs"`
	InputBytes  int64         `json:"input_bytes"`
	OutputBytes int64         `json:"output_bytes"`
	Duration    time.Duration `json:"-"`
	DurationMS  int64         `json:"duration_ms"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Summary aggregates runs per status.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

const runColumns = "id, request_id, route, tag, status, error, inputs, outputs, input_bytes, output_bytes, duration_ms, created_at"

// Record inserts run and returns its assigned identifier. A zero CreatedAt
// is stamped with the current time.
func (s *Store) Record(ctx context.Context, run Run) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("history store unavailable")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusSucceeded
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO runs (request_id, route, tag, status, error, inputs, outputs, input_bytes, output_bytes, duration_ms, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(run.RequestID),
		run.Route,
		run.Tag,
		string(run.Status),
		nullableString(run.Error),
		run.Inputs,
		run.Outputs,
		run.InputBytes,
		run.OutputBytes,
		run.Duration.Milliseconds(),
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// List returns the most recent runs, newest first. limit <= 0 selects
// DefaultListLimit; values above MaxListLimit are capped.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	limit = ClampLimit(limit)
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune keeps the newest keep runs and deletes the rest. It returns the
// number of rows removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

// Summarize counts runs by status.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize runs: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.Total += count
		switch Status(status) {
		case StatusSucceeded:
			summary.Succeeded += count
		case StatusFailed:
			summary.Failed += count
		}
	}
	return summary, rows.Err()
}

// ClampLimit normalises a requested list size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run        Run
		requestID  sql.NullString
		status     string
		errMessage sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&run.ID,
		&requestID,
		&run.Route,
		&run.Tag,
		&status,
		&errMessage,
		&run.Inputs,
		&run.Outputs,
		&run.InputBytes,
		&run.OutputBytes,
		&run.DurationMS,
		&createdRaw,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.RequestID = requestID.String
	run.Status = Status(status)
	run.Error = errMessage.String
	run.Duration = time.Duration(run.DurationMS) * time.Millisecond
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		run.CreatedAt = created
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
