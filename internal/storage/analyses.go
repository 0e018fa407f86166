package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveAnalysis inserts a new analysis row. Status defaults to "queued".
func (s *Store) SaveAnalysis(a Analysis) error {
	status := a.Status
	if status == "" {
		status = StatusQueued
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO analyses (id, created_at, filename, query, status, result, duration_ms, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, createdAt.UTC().Format(time.RFC3339), a.Filename, a.Query, status, a.Result, a.DurationMs, a.LastError,
	)
	return err
}

// GetAnalysis returns the analysis with the given ID.
func (s *Store) GetAnalysis(id string) (Analysis, error) {
	var a Analysis
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, created_at, filename, query, status, result, duration_ms, last_error
		FROM analyses WHERE id = ?`, id,
	).Scan(&a.ID, &createdAt, &a.Filename, &a.Query, &a.Status, &a.Result, &a.DurationMs, &a.LastError)
	if err == sql.ErrNoRows {
		return Analysis{}, ErrNotFound
	}
	if err != nil {
		return Analysis{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Analysis{}, fmt.Errorf("parsing created_at: %w", err)
	}
	a.CreatedAt = t
	return a, nil
}

// ListAnalyses returns analyses newest first.
func (s *Store) ListAnalyses(limit, offset int) ([]Analysis, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, filename, query, status, result, duration_ms, last_error
		FROM analyses ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Analysis
	for rows.Next() {
		var a Analysis
		var createdAt string
		if err := rows.Scan(&a.ID, &createdAt, &a.Filename, &a.Query, &a.Status, &a.Result, &a.DurationMs, &a.LastError); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		a.CreatedAt = t
		results = append(results, a)
	}
	return results, rows.Err()
}

// DeleteAnalysis removes the analysis with the given ID.
func (s *Store) DeleteAnalysis(id string) error {
	res, err := s.db.Exec(`DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAnalysisRunning transitions an analysis to "running".
func (s *Store) MarkAnalysisRunning(id string) error {
	return s.setAnalysisStatus(id, StatusRunning)
}

// CompleteAnalysis records the result and marks the analysis completed.
func (s *Store) CompleteAnalysis(id, result string, durationMs int64) error {
	res, err := s.db.Exec(
		`UPDATE analyses SET status = ?, result = ?, duration_ms = ?, last_error = '' WHERE id = ?`,
		StatusCompleted, result, durationMs, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// FailAnalysis records the error and marks the analysis failed.
func (s *Store) FailAnalysis(id, errMsg string) error {
	res, err := s.db.Exec(
		`UPDATE analyses SET status = ?, last_error = ? WHERE id = ?`,
		StatusFailed, errMsg, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Store) setAnalysisStatus(id, status string) error {
	res, err := s.db.Exec(`UPDATE analyses SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
