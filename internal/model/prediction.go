package model

import "time"

// PredictionStatus is the lifecycle state of a tracked prediction
type PredictionStatus string

const (
	StatusTooEarly          PredictionStatus = "too-early"
	StatusVerified          PredictionStatus = "verified"
	StatusFalsified         PredictionStatus = "falsified"
	StatusPartiallyVerified PredictionStatus = "partially-verified"
	StatusUnfalsifiable     PredictionStatus = "unfalsifiable"
	StatusAmbiguous         PredictionStatus = "ambiguous"
)

// Valid reports whether the status names a known lifecycle state.
func (s PredictionStatus) Valid() bool {
	switch s {
	case StatusTooEarly, StatusVerified, StatusFalsified,
		StatusPartiallyVerified, StatusUnfalsifiable, StatusAmbiguous:
		return true
	}
	return false
}

// Terminal reports whether the status may only be changed via explicit override.
func (s PredictionStatus) Terminal() bool {
	return s == StatusVerified || s == StatusFalsified
}

// Prediction is the verifiable subtype of claim: a falsifiable forward-looking
// statement whose outcome is tracked over time.
//
// Transitions are one-way: too-early moves to exactly one terminal or
// semi-terminal state, and verified/falsified are never reverted by the
// pipeline. Only an operator override may overwrite them.
type Prediction struct {
	ID         int64     `json:"id"`
	ClaimID    int64     `json:"claim_id,omitempty"`
	Text       string    `json:"text"`
	Author     string    `json:"author"`
	Confidence float64   `json:"confidence"`
	Timeframe  Timeframe `json:"timeframe,omitempty"`
	Topic      string    `json:"topic,omitempty"`
	MadeAt     time.Time `json:"made_at"`

	Status        PredictionStatus `json:"status"`
	VerifiedAt    *time.Time       `json:"verified_at,omitempty"`
	AccuracyScore *float64         `json:"accuracy_score,omitempty"` // 0 .. 1
	Evidence      string           `json:"evidence,omitempty"`
}

// AccuracyStats aggregates verification outcomes, optionally per author.
type AccuracyStats struct {
	Author          string                   `json:"author,omitempty"`
	Total           int                      `json:"total"`
	ByStatus        map[PredictionStatus]int `json:"by_status"`
	AverageAccuracy float64                  `json:"average_accuracy"` // Over verified + partially-verified; 0 when no sample
	Scored          int                      `json:"scored"`
}
