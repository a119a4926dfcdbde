package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hypewatch/internal/model"
)

// ErrTerminalStatus is returned when a status update would move a prediction
// out of verified/falsified without the explicit override flag.
var ErrTerminalStatus = errors.New("prediction already has a terminal status")

// ErrInvalidStatus is returned for an unknown lifecycle status.
var ErrInvalidStatus = errors.New("invalid prediction status")

const predictionColumns = `id, claim_id, text, author, confidence, timeframe, topic,
    made_at, status, verified_at, accuracy_score, evidence`

// RecordPrediction inserts a prediction with status too-early and returns its id.
func (s *Store) RecordPrediction(ctx context.Context, p model.Prediction) (int64, error) {
	if p.MadeAt.IsZero() {
		p.MadeAt = time.Now().UTC()
	}

	var claimID interface{}
	if p.ClaimID != 0 {
		claimID = p.ClaimID
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (claim_id, text, author, confidence, timeframe, topic, made_at, status)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		claimID, p.Text, p.Author, p.Confidence, p.Timeframe, p.Topic,
		p.MadeAt.Format(timeFormat), model.StatusTooEarly,
	)
	if err != nil {
		return 0, fmt.Errorf("record prediction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// UpdatePredictionStatus moves a prediction to a new lifecycle status and
// stamps verified-at. Transitions out of verified/falsified are rejected with
// ErrTerminalStatus unless force is set, the explicit operator override.
func (s *Store) UpdatePredictionStatus(ctx context.Context, id int64, status model.PredictionStatus, accuracyScore *float64, evidence string, force bool) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	current, err := s.GetPrediction(ctx, id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() && !force {
		return fmt.Errorf("prediction %d is %s: %w", id, current.Status, ErrTerminalStatus)
	}

	var score interface{}
	if accuracyScore != nil {
		score = *accuracyScore
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE predictions SET status = ?, verified_at = ?, accuracy_score = ?, evidence = ?
         WHERE id = ?`,
		status, time.Now().UTC().Format(timeFormat), score, evidence, id)
	if err != nil {
		return fmt.Errorf("update prediction status: %w", err)
	}
	return nil
}

// GetPrediction fetches one prediction by id.
func (s *Store) GetPrediction(ctx context.Context, id int64) (*model.Prediction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+predictionColumns+` FROM predictions WHERE id = ?`, id)
	p, err := scanPrediction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prediction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return p, nil
}

// ListPredictions returns predictions, optionally filtered by author, newest first.
func (s *Store) ListPredictions(ctx context.Context, author string, limit int) ([]model.Prediction, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + predictionColumns + ` FROM predictions`
	var args []interface{}
	if author != "" {
		query += ` WHERE author = ?`
		args = append(args, author)
	}
	query += ` ORDER BY made_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var predictions []model.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		predictions = append(predictions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return predictions, nil
}

// PredictionAccuracyStats aggregates counts per status and the mean accuracy
// over verified + partially-verified predictions, optionally per author.
// A zero sample reports AverageAccuracy 0, never NaN.
func (s *Store) PredictionAccuracyStats(ctx context.Context, author string) (*model.AccuracyStats, error) {
	query := `SELECT status, COUNT(1) FROM predictions`
	var args []interface{}
	if author != "" {
		query += ` WHERE author = ?`
		args = append(args, author)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("accuracy stats: %w", err)
	}
	defer rows.Close()

	stats := &model.AccuracyStats{
		Author:   author,
		ByStatus: make(map[model.PredictionStatus]int),
	}
	for rows.Next() {
		var (
			status model.PredictionStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	scoreQuery := `SELECT COALESCE(AVG(accuracy_score), 0), COUNT(accuracy_score)
        FROM predictions WHERE status IN (?, ?) AND accuracy_score IS NOT NULL`
	scoreArgs := []interface{}{model.StatusVerified, model.StatusPartiallyVerified}
	if author != "" {
		scoreQuery += ` AND author = ?`
		scoreArgs = append(scoreArgs, author)
	}

	err = s.db.QueryRowContext(ctx, scoreQuery, scoreArgs...).Scan(&stats.AverageAccuracy, &stats.Scored)
	if err != nil {
		return nil, fmt.Errorf("average accuracy: %w", err)
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrediction(row rowScanner) (*model.Prediction, error) {
	var (
		p          model.Prediction
		claimID    sql.NullInt64
		madeAt     string
		verifiedAt sql.NullString
		score      sql.NullFloat64
	)
	if err := row.Scan(&p.ID, &claimID, &p.Text, &p.Author, &p.Confidence, &p.Timeframe,
		&p.Topic, &madeAt, &p.Status, &verifiedAt, &score, &p.Evidence); err != nil {
		return nil, err
	}
	if claimID.Valid {
		p.ClaimID = claimID.Int64
	}
	p.MadeAt = parseTime(madeAt)
	p.VerifiedAt = parseNullableTime(verifiedAt)
	if score.Valid {
		p.AccuracyScore = &score.Float64
	}
	return &p, nil
}
