package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"phylo/internal/models"
)

const runColumns = "id, input_path, input_digest, input_bytes, state, failed_step, reason, uploaded_path, aligned_path, tree_path, request_id, node_count, started_at, finished_at, exported_svg_path, exported_svg_local"

const defaultListLimit = 20

// CreateRun inserts a new run row. An empty ID is filled from GenerateRunID.
func (s *Store) CreateRun(ctx context.Context, run *models.Run) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	if strings.TrimSpace(run.InputPath) == "" {
		return fmt.Errorf("input path is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.ID == "" {
		id, err := s.GenerateRunID(run.StartedAt)
		if err != nil {
			return err
		}
		run.ID = id
	}
	if run.State == "" {
		run.State = models.StateIdle
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.InputPath,
		nullString(run.InputDigest),
		run.InputBytes,
		string(run.State),
		nullString(run.FailedStep),
		nullString(run.Reason),
		nullString(run.UploadedPath),
		nullString(run.AlignedPath),
		nullString(run.TreePath),
		nullString(run.RequestID),
		run.NodeCount,
		formatTime(run.StartedAt),
		nullTime(run.FinishedAt),
		nullString(run.ExportedSVGPath),
		nullString(run.ExportedSVGLocal),
	)
	return err
}

// UpdateRun persists every mutable field of run.
func (s *Store) UpdateRun(ctx context.Context, run *models.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if !models.IsValidRunState(run.State) {
		return fmt.Errorf("invalid state: %s", run.State)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE runs SET
  input_digest = ?, input_bytes = ?, state = ?, failed_step = ?, reason = ?,
  uploaded_path = ?, aligned_path = ?, tree_path = ?, request_id = ?,
  node_count = ?, finished_at = ?, exported_svg_path = ?, exported_svg_local = ?
WHERE id = ?`,
		nullString(run.InputDigest),
		run.InputBytes,
		string(run.State),
		nullString(run.FailedStep),
		nullString(run.Reason),
		nullString(run.UploadedPath),
		nullString(run.AlignedPath),
		nullString(run.TreePath),
		nullString(run.RequestID),
		run.NodeCount,
		nullTime(run.FinishedAt),
		nullString(run.ExportedSVGPath),
		nullString(run.ExportedSVGLocal),
		run.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, run.ID)
}

// RecordExport stores where a run's SVG was published and downloaded.
func (s *Store) RecordExport(ctx context.Context, id, svgPath, localPath string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET exported_svg_path = ?, exported_svg_local = ? WHERE id = ?`,
		nullString(svgPath), nullString(localPath), id)
	if err != nil {
		return err
	}
	return expectOneRow(res, id)
}

// GetRun returns one run, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs first. Non-positive limits use a default.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// LatestRendered returns the newest run that reached the rendered state, or nil.
func (s *Store) LatestRendered(ctx context.Context) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE state = ? ORDER BY started_at DESC, id DESC LIMIT 1`,
		string(models.StateRendered))
	return scanRun(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var state, startedAt string
	var digest, failedStep, reason sql.NullString
	var uploaded, aligned, treePath, requestID sql.NullString
	var finishedAt, exportedPath, exportedLocal sql.NullString
	err := row.Scan(
		&run.ID,
		&run.InputPath,
		&digest,
		&run.InputBytes,
		&state,
		&failedStep,
		&reason,
		&uploaded,
		&aligned,
		&treePath,
		&requestID,
		&run.NodeCount,
		&startedAt,
		&finishedAt,
		&exportedPath,
		&exportedLocal,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.State = models.RunState(state)
	run.InputDigest = digest.String
	run.FailedStep = failedStep.String
	run.Reason = reason.String
	run.UploadedPath = uploaded.String
	run.AlignedPath = aligned.String
	run.TreePath = treePath.String
	run.RequestID = requestID.String
	run.ExportedSVGPath = exportedPath.String
	run.ExportedSVGLocal = exportedLocal.String

	run.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at for %s: %w", run.ID, err)
	}
	if finishedAt.Valid && finishedAt.String != "" {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at for %s: %w", run.ID, err)
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
