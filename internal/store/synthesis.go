package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"hypewatch/internal/model"
)

// SaveSynthesisRun persists one synthesis cycle's output. The topics and the
// hype assessment are stored under their canonical JSON schema; reads never
// reshape them. Reruns add rows, keyed by run id.
func (s *Store) SaveSynthesisRun(ctx context.Context, run model.SynthesisRun) error {
	topicsJSON, err := json.Marshal(run.Topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	assessmentJSON, err := json.Marshal(run.Assessment)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO synthesis_runs (run_id, period_days, claim_count, topics_json, assessment_json, digest, generated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.PeriodDays, run.ClaimCount,
		string(topicsJSON), string(assessmentJSON), run.Digest,
		run.GeneratedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("save synthesis run: %w", err)
	}
	return nil
}

// LatestSynthesisRun returns the most recent run, or ErrNotFound.
func (s *Store) LatestSynthesisRun(ctx context.Context) (*model.SynthesisRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, period_days, claim_count, topics_json, assessment_json, digest, generated_at
         FROM synthesis_runs ORDER BY generated_at DESC LIMIT 1`)
	run, err := scanSynthesisRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest synthesis run: %w", err)
	}
	return run, nil
}

// SynthesisHistory returns past runs, newest first.
func (s *Store) SynthesisHistory(ctx context.Context, limit int) ([]model.SynthesisRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, period_days, claim_count, topics_json, assessment_json, digest, generated_at
         FROM synthesis_runs ORDER BY generated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("synthesis history: %w", err)
	}
	defer rows.Close()

	var runs []model.SynthesisRun
	for rows.Next() {
		run, err := scanSynthesisRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan synthesis run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate synthesis runs: %w", err)
	}
	return runs, nil
}

func scanSynthesisRun(row rowScanner) (*model.SynthesisRun, error) {
	var (
		run            model.SynthesisRun
		topicsJSON     string
		assessmentJSON string
		generatedAt    string
	)
	if err := row.Scan(&run.RunID, &run.PeriodDays, &run.ClaimCount,
		&topicsJSON, &assessmentJSON, &run.Digest, &generatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(topicsJSON), &run.Topics); err != nil {
		return nil, fmt.Errorf("unmarshal topics: %w", err)
	}
	if err := json.Unmarshal([]byte(assessmentJSON), &run.Assessment); err != nil {
		return nil, fmt.Errorf("unmarshal assessment: %w", err)
	}
	run.GeneratedAt = parseTime(generatedAt)
	return &run, nil
}
