// Package gateway is the boundary through which all semantic judgment is
// delegated to an external reasoning service.
//
// The gateway owns request batching, JSON-result normalization, and degraded
// mode: a malformed or unparseable response becomes an empty/neutral result
// for that batch, never an aborted pipeline.
package gateway

import (
	"context"
	"strings"

	"hypewatch/internal/model"
)

// ItemSummary is the bounded projection of a content item sent to the
// reasoning service: truncated body, author, topic hint.
type ItemSummary struct {
	Index  int    `json:"index"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
	Topic  string `json:"topic,omitempty"`
	Body   string `json:"body"`
	URL    string `json:"url,omitempty"`
}

// Assessment is the relevance-filter verdict for one item.
type Assessment struct {
	Index          int     `json:"index"`
	Relevance      float64 `json:"relevance"`
	Topic          string  `json:"topic,omitempty"`
	ContentType    string  `json:"content_type,omitempty"`
	AuthorCategory string  `json:"author_category,omitempty"`
	Brief          string  `json:"brief,omitempty"`
}

// CandidateClaim is one normalized claim linked back to its batch item.
// Falsifiable marks forward-looking statements the prediction tracker records.
type CandidateClaim struct {
	Index       int
	Claim       model.ExtractedClaim
	Falsifiable bool
}

// TopicRequest carries everything the service needs to narrate one topic.
type TopicRequest struct {
	Topic           string
	Claims          []model.ExtractedClaim
	LabSentiment    float64
	CriticSentiment float64
	HypeDelta       float64
}

// TopicNarrative is the service's qualitative synthesis for one topic. The
// quantitative fields (sentiments, delta) are computed locally and never
// asked of the service.
type TopicNarrative struct {
	LabConsensus       string   `json:"lab_consensus"`
	CriticConsensus    string   `json:"critic_consensus"`
	Agreements         []string `json:"agreements"`
	Disagreements      []string `json:"disagreements"`
	NotablePredictions []string `json:"notable_predictions"`
	Narrative          string   `json:"narrative"`
}

// Gateway abstracts the request types sent to the external reasoning service.
type Gateway interface {
	// FilterRelevance scores items for relevance and annotates survivors.
	FilterRelevance(ctx context.Context, items []ItemSummary) ([]Assessment, error)

	// ExtractClaims turns filtered items into structured claims.
	ExtractClaims(ctx context.Context, items []ItemSummary) ([]CandidateClaim, error)

	// SynthesizeTopic produces the narrative synthesis for one topic.
	SynthesizeTopic(ctx context.Context, req TopicRequest) (*TopicNarrative, error)

	// AssessHype produces the cycle-wide over/underhyped verdict.
	AssessHype(ctx context.Context, topics []model.TopicSynthesis) (*model.HypeAssessment, error)

	// GenerateDigest writes the weekly markdown digest for a run.
	GenerateDigest(ctx context.Context, run model.SynthesisRun) (string, error)
}

// wireClaim is the heterogeneous shape extraction responses arrive in.
// Field aliases cover the naming drift observed across service outputs.
type wireClaim struct {
	Index           int      `json:"index"`
	Item            int      `json:"item"` // Alias some responses use for index
	Text            string   `json:"text"`
	Claim           string   `json:"claim"` // Alias for text
	Kind            string   `json:"kind"`
	Type            string   `json:"type"` // Alias for kind
	Topic           string   `json:"topic"`
	Stance          string   `json:"stance"`
	Bullishness     *float64 `json:"bullishness"`
	Confidence      *float64 `json:"confidence"`
	Timeframe       string   `json:"timeframe"`
	EvidenceQuality string   `json:"evidence_quality"`
	Quoteworthiness *float64 `json:"quoteworthiness"`
	Entities        []string `json:"entities"`
	Quote           string   `json:"quote"`
	URL             string   `json:"url"` // Some responses echo the item URL
	Falsifiable     bool     `json:"falsifiable"`
}

// normalizeClaim maps a wire claim into the canonical schema, defaulting any
// missing optional field rather than rejecting the record.
func normalizeClaim(w wireClaim) CandidateClaim {
	index := w.Index
	if index == 0 && w.Item != 0 {
		index = w.Item
	}

	text := w.Text
	if text == "" {
		text = w.Claim
	}

	kind := model.ClaimKind(strings.ToLower(firstNonEmpty(w.Kind, w.Type)))
	switch kind {
	case model.ClaimFact, model.ClaimPrediction, model.ClaimHint,
		model.ClaimOpinion, model.ClaimCritique, model.ClaimQuestion:
	default:
		kind = model.ClaimOpinion
	}

	stance := model.Stance(strings.ToLower(w.Stance))
	switch stance {
	case model.StanceBullish, model.StanceBearish, model.StanceNeutral:
	default:
		stance = model.StanceNeutral
	}

	claim := model.ExtractedClaim{
		Text:            strings.TrimSpace(text),
		Kind:            kind,
		Topic:           firstNonEmpty(strings.ToLower(w.Topic), "general"),
		Stance:          stance,
		Bullishness:     clamp01(valueOr(w.Bullishness, 0.5)),
		Confidence:      clamp01(valueOr(w.Confidence, 0.5)),
		Timeframe:       model.Timeframe(w.Timeframe),
		EvidenceQuality: w.EvidenceQuality,
		Quoteworthiness: clamp01(valueOr(w.Quoteworthiness, 0)),
		Entities:        w.Entities,
		Quote:           w.Quote,
		SourceURL:       w.URL,
	}

	return CandidateClaim{
		Index:       index,
		Claim:       claim,
		Falsifiable: w.Falsifiable || kind == model.ClaimPrediction,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Summarize truncates a body for inclusion in a batch request.
func Summarize(body string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 600
	}
	runes := []rune(body)
	if len(runes) <= maxRunes {
		return body
	}
	return string(runes[:maxRunes]) + "…"
}

// SummarizeContent builds item summaries for a batch of content rows.
func SummarizeContent(items []model.Content) []ItemSummary {
	summaries := make([]ItemSummary, len(items))
	for i, item := range items {
		summaries[i] = ItemSummary{
			Index:  i,
			Title:  item.Title,
			Author: item.Author,
			Topic:  item.Topic,
			Body:   Summarize(item.Body, 600),
			URL:    item.URL,
		}
	}
	return summaries
}
