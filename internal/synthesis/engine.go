// Package synthesis aggregates extracted claims into per-topic syntheses and
// the cycle-wide hype assessment. The quantitative side (cohort sentiment,
// hype delta, evidence quality) is computed locally; only the qualitative
// narration is delegated to the reasoning gateway.
package synthesis

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"hypewatch/internal/gateway"
	"hypewatch/internal/model"
)

// NeutralSentiment is the cohort default when no claims exist to average.
const NeutralSentiment = 0.5

// Engine turns a period's claims into topic syntheses and a hype assessment.
type Engine struct {
	gw     gateway.Gateway
	logger *zap.Logger
}

// NewEngine creates a synthesis engine over the reasoning gateway.
func NewEngine(gw gateway.Gateway, logger *zap.Logger) *Engine {
	return &Engine{gw: gw, logger: logger}
}

// GroupByTopic buckets claims by topic, defaulting an unlabeled claim to
// "general". Topics come back in deterministic order via Topics.
func GroupByTopic(claims []model.ExtractedClaim) map[string][]model.ExtractedClaim {
	groups := make(map[string][]model.ExtractedClaim)
	for _, claim := range claims {
		topic := claim.Topic
		if topic == "" {
			topic = "general"
		}
		groups[topic] = append(groups[topic], claim)
	}
	return groups
}

// Topics returns the group keys sorted by descending claim count, ties
// alphabetical.
func Topics(groups map[string][]model.ExtractedClaim) []string {
	topics := make([]string, 0, len(groups))
	for topic := range groups {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		if len(groups[topics[i]]) != len(groups[topics[j]]) {
			return len(groups[topics[i]]) > len(groups[topics[j]])
		}
		return topics[i] < topics[j]
	})
	return topics
}

// CohortSentiment averages bullishness over the claims whose author category
// matches. An empty cohort reads as neutral with confident=false, so a
// missing voice never masquerades as agreement.
func CohortSentiment(claims []model.ExtractedClaim, category string) (float64, bool) {
	var sum float64
	var n int
	for _, claim := range claims {
		if claim.AuthorCategory == category {
			sum += claim.Bullishness
			n++
		}
	}
	if n == 0 {
		return NeutralSentiment, false
	}
	return sum / float64(n), true
}

// evidenceWeight maps the qualitative evidence label to a comparable score.
func evidenceWeight(quality string) float64 {
	switch quality {
	case "paper":
		return 1.0
	case "benchmark":
		return 0.75
	case "demo":
		return 0.5
	case "anecdotal":
		return 0.25
	default:
		return 0
	}
}

// EvidenceQualityAvg scores how well-grounded a topic's claims are, 0 to 1.
func EvidenceQualityAvg(claims []model.ExtractedClaim) float64 {
	if len(claims) == 0 {
		return 0
	}
	var sum float64
	for _, claim := range claims {
		sum += evidenceWeight(claim.EvidenceQuality)
	}
	return sum / float64(len(claims))
}

// SynthesizeTopic builds one topic's synthesis: local aggregates first, then
// the gateway narrative. A gateway failure degrades to an aggregates-only
// synthesis rather than failing the topic.
func (e *Engine) SynthesizeTopic(ctx context.Context, topic string, claims []model.ExtractedClaim) model.TopicSynthesis {
	labSentiment, labOK := CohortSentiment(claims, model.CategoryLab)
	criticSentiment, criticOK := CohortSentiment(claims, model.CategoryCritic)

	synthesis := model.TopicSynthesis{
		Topic:              topic,
		ClaimCount:         len(claims),
		LabSentiment:       labSentiment,
		CriticSentiment:    criticSentiment,
		HypeDelta:          labSentiment - criticSentiment,
		DeltaConfident:     labOK && criticOK,
		EvidenceQualityAvg: EvidenceQualityAvg(claims),
	}

	narrative, err := e.gw.SynthesizeTopic(ctx, gateway.TopicRequest{
		Topic:           topic,
		Claims:          claims,
		LabSentiment:    labSentiment,
		CriticSentiment: criticSentiment,
		HypeDelta:       synthesis.HypeDelta,
	})
	if err != nil {
		e.logger.Warn("topic narrative unavailable, keeping aggregates",
			zap.String("topic", topic), zap.Error(err))
		return synthesis
	}

	synthesis.LabConsensus = narrative.LabConsensus
	synthesis.CriticConsensus = narrative.CriticConsensus
	synthesis.Agreements = narrative.Agreements
	synthesis.Disagreements = narrative.Disagreements
	synthesis.NotablePredictions = narrative.NotablePredictions
	synthesis.Narrative = narrative.Narrative
	return synthesis
}

// SynthesizeAll runs topic synthesis for every group, ordered by claim count.
func (e *Engine) SynthesizeAll(ctx context.Context, groups map[string][]model.ExtractedClaim) []model.TopicSynthesis {
	topics := Topics(groups)
	results := make([]model.TopicSynthesis, 0, len(topics))
	for _, topic := range topics {
		if ctx.Err() != nil {
			break
		}
		results = append(results, e.SynthesizeTopic(ctx, topic, groups[topic]))
	}
	return results
}

// AssessHype produces the cycle-wide verdict. When the gateway cannot answer,
// the assessment degrades to empty verdict lists and neutral field sentiment.
func (e *Engine) AssessHype(ctx context.Context, topics []model.TopicSynthesis) model.HypeAssessment {
	if len(topics) == 0 {
		return neutralAssessment()
	}

	assessment, err := e.gw.AssessHype(ctx, topics)
	if err != nil || assessment == nil {
		e.logger.Warn("hype assessment unavailable, degrading to neutral", zap.Error(err))
		return neutralAssessment()
	}

	if assessment.Overhyped == nil {
		assessment.Overhyped = []model.TopicVerdict{}
	}
	if assessment.Underhyped == nil {
		assessment.Underhyped = []model.TopicVerdict{}
	}
	if assessment.FieldSentiment < 0 || assessment.FieldSentiment > 1 {
		assessment.FieldSentiment = NeutralSentiment
	}
	return *assessment
}

func neutralAssessment() model.HypeAssessment {
	return model.HypeAssessment{
		Overhyped:      []model.TopicVerdict{},
		Underhyped:     []model.TopicVerdict{},
		FieldSentiment: NeutralSentiment,
	}
}
