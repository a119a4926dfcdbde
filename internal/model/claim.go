package model

import "time"

// ClaimKind categorizes the nature of an extracted claim
type ClaimKind string

const (
	ClaimFact       ClaimKind = "fact"
	ClaimPrediction ClaimKind = "prediction"
	ClaimHint       ClaimKind = "hint" // Teased capability or unannounced work
	ClaimOpinion    ClaimKind = "opinion"
	ClaimCritique   ClaimKind = "critique"
	ClaimQuestion   ClaimKind = "question"
)

// Stance captures the direction of a claim relative to AI progress
type Stance string

const (
	StanceBullish Stance = "bullish"
	StanceBearish Stance = "bearish"
	StanceNeutral Stance = "neutral"
)

// Timeframe buckets a forward-looking claim
type Timeframe string

const (
	TimeframeMonths   Timeframe = "months"
	TimeframeOneYear  Timeframe = "1-year"
	TimeframeTwoYears Timeframe = "2-years"
	TimeframeFiveYear Timeframe = "5-years"
	TimeframeDecade   Timeframe = "decade"
	TimeframeNone     Timeframe = ""
)

// ExtractedClaim is one structured assertion derived from a Content item.
//
// Claims are append-only: never mutated after creation. Every persisted claim
// references exactly one Content row by ContentID.
type ExtractedClaim struct {
	ID        int64     `json:"id"`
	ContentID int64     `json:"content_id"`
	Text      string    `json:"text"`
	Kind      ClaimKind `json:"kind"`
	Topic     string    `json:"topic"`

	Stance      Stance  `json:"stance"`
	Bullishness float64 `json:"bullishness"` // 0 bearish .. 1 bullish
	Confidence  float64 `json:"confidence"`  // 0 .. 1

	Timeframe       Timeframe `json:"timeframe,omitempty"`
	EvidenceQuality string    `json:"evidence_quality,omitempty"` // anecdotal, benchmark, demo, paper, none
	Quoteworthiness float64   `json:"quoteworthiness"`
	Entities        []string  `json:"entities,omitempty"`
	Quote           string    `json:"quote,omitempty"`

	// Denormalized for query convenience.
	Author         string `json:"author,omitempty"`
	AuthorCategory string `json:"author_category,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
