package model

import "time"

// TopicSynthesis is a per-topic, per-period aggregate of claims.
// Recomputed wholesale each synthesis cycle, never incrementally patched.
type TopicSynthesis struct {
	Topic      string `json:"topic"`
	ClaimCount int    `json:"claim_count"`

	LabConsensus    string   `json:"lab_consensus,omitempty"`
	CriticConsensus string   `json:"critic_consensus,omitempty"`
	Agreements      []string `json:"agreements,omitempty"`
	Disagreements   []string `json:"disagreements,omitempty"`

	LabSentiment    float64 `json:"lab_sentiment"`
	CriticSentiment float64 `json:"critic_sentiment"`
	HypeDelta       float64 `json:"hype_delta"` // lab minus critic; positive = possibly overhyped
	DeltaConfident  bool    `json:"delta_confident"`

	NotablePredictions []string `json:"notable_predictions,omitempty"`
	EvidenceQualityAvg float64  `json:"evidence_quality_avg"`
	Narrative          string   `json:"narrative,omitempty"`
}

// TopicVerdict ranks one topic inside a hype assessment.
type TopicVerdict struct {
	Topic     string  `json:"topic"`
	Score     float64 `json:"score"` // Signed; magnitude is strength of the verdict
	Rationale string  `json:"rationale,omitempty"`
}

// HypeAssessment is the synthesis-cycle-wide verdict. One canonical schema at
// the storage boundary; immutable once stored.
type HypeAssessment struct {
	Overhyped      []TopicVerdict `json:"overhyped"`
	Underhyped     []TopicVerdict `json:"underhyped"`
	FieldSentiment float64        `json:"field_sentiment"` // 0 bearish .. 1 bullish
	Summary        string         `json:"summary,omitempty"`
}

// SynthesisRun is one persisted synthesis cycle: the topic syntheses and the
// hype assessment produced for a lookback period, keyed by a run UUID.
// Reruns add rows; prior runs are never mutated.
type SynthesisRun struct {
	RunID        string           `json:"run_id"`
	PeriodDays   int              `json:"period_days"`
	ClaimCount   int              `json:"claim_count"`
	Topics       []TopicSynthesis `json:"topics"`
	Assessment   HypeAssessment   `json:"assessment"`
	Digest       string           `json:"digest,omitempty"` // Optional markdown digest
	GeneratedAt  time.Time        `json:"generated_at"`
}
