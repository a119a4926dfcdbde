package synthesis

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"hypewatch/internal/gateway"
	"hypewatch/internal/model"
)

type fakeGateway struct {
	narrative    *gateway.TopicNarrative
	narrativeErr error
	assessment   *model.HypeAssessment
	assessErr    error
	topicReqs    []gateway.TopicRequest
}

func (f *fakeGateway) FilterRelevance(ctx context.Context, items []gateway.ItemSummary) ([]gateway.Assessment, error) {
	return nil, nil
}

func (f *fakeGateway) ExtractClaims(ctx context.Context, items []gateway.ItemSummary) ([]gateway.CandidateClaim, error) {
	return nil, nil
}

func (f *fakeGateway) SynthesizeTopic(ctx context.Context, req gateway.TopicRequest) (*gateway.TopicNarrative, error) {
	f.topicReqs = append(f.topicReqs, req)
	return f.narrative, f.narrativeErr
}

func (f *fakeGateway) AssessHype(ctx context.Context, topics []model.TopicSynthesis) (*model.HypeAssessment, error) {
	return f.assessment, f.assessErr
}

func (f *fakeGateway) GenerateDigest(ctx context.Context, run model.SynthesisRun) (string, error) {
	return "", nil
}

func claim(topic, category string, bullishness float64) model.ExtractedClaim {
	return model.ExtractedClaim{
		Topic:          topic,
		AuthorCategory: category,
		Bullishness:    bullishness,
	}
}

func TestGroupByTopic(t *testing.T) {
	claims := []model.ExtractedClaim{
		claim("agi-timelines", model.CategoryLab, 0.9),
		claim("", model.CategoryCritic, 0.2),
		claim("agi-timelines", model.CategoryCritic, 0.3),
	}

	groups := GroupByTopic(claims)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups["agi-timelines"]) != 2 {
		t.Errorf("agi-timelines group size = %d", len(groups["agi-timelines"]))
	}
	if len(groups["general"]) != 1 {
		t.Errorf("unlabeled claim should land in general, got %d there", len(groups["general"]))
	}
}

func TestTopicsOrdering(t *testing.T) {
	groups := map[string][]model.ExtractedClaim{
		"beta":  {claim("beta", "", 0.5)},
		"alpha": {claim("alpha", "", 0.5)},
		"big":   {claim("big", "", 0.5), claim("big", "", 0.5)},
	}
	got := Topics(groups)
	want := []string{"big", "alpha", "beta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Topics = %v, want %v", got, want)
	}
}

func TestCohortSentiment(t *testing.T) {
	claims := []model.ExtractedClaim{
		claim("x", model.CategoryLab, 0.9),
		claim("x", model.CategoryLab, 0.7),
		claim("x", model.CategoryCritic, 0.3),
	}

	lab, ok := CohortSentiment(claims, model.CategoryLab)
	if !ok || math.Abs(lab-0.8) > 1e-9 {
		t.Errorf("lab sentiment = %v (ok=%v), want 0.8 confident", lab, ok)
	}

	journalist, ok := CohortSentiment(claims, model.CategoryJournalist)
	if ok || journalist != NeutralSentiment {
		t.Errorf("empty cohort = %v (ok=%v), want neutral unconfident", journalist, ok)
	}
}

func TestEvidenceQualityAvg(t *testing.T) {
	claims := []model.ExtractedClaim{
		{EvidenceQuality: "paper"},
		{EvidenceQuality: "demo"},
		{EvidenceQuality: "none"},
		{EvidenceQuality: ""},
	}
	got := EvidenceQualityAvg(claims)
	if math.Abs(got-0.375) > 1e-9 {
		t.Errorf("evidence quality avg = %v, want 0.375", got)
	}
	if EvidenceQualityAvg(nil) != 0 {
		t.Errorf("empty claim set should score 0")
	}
}

func TestSynthesizeTopic(t *testing.T) {
	gw := &fakeGateway{narrative: &gateway.TopicNarrative{
		LabConsensus:    "imminent breakthrough",
		CriticConsensus: "benchmark gaming",
		Disagreements:   []string{"timeline realism"},
		Narrative:       "labs and critics read the same results differently",
	}}
	engine := NewEngine(gw, zap.NewNop())

	claims := []model.ExtractedClaim{
		claim("agi-timelines", model.CategoryLab, 0.8),
		claim("agi-timelines", model.CategoryCritic, 0.3),
	}

	got := engine.SynthesizeTopic(context.Background(), "agi-timelines", claims)

	if math.Abs(got.HypeDelta-0.5) > 1e-9 {
		t.Errorf("hype delta = %v, want 0.5", got.HypeDelta)
	}
	if !got.DeltaConfident {
		t.Errorf("delta should be confident with both cohorts present")
	}
	if got.Narrative != "labs and critics read the same results differently" {
		t.Errorf("narrative = %q", got.Narrative)
	}
	if len(gw.topicReqs) != 1 || gw.topicReqs[0].Topic != "agi-timelines" {
		t.Fatalf("gateway request = %+v", gw.topicReqs)
	}
	if math.Abs(gw.topicReqs[0].HypeDelta-0.5) > 1e-9 {
		t.Errorf("request delta = %v", gw.topicReqs[0].HypeDelta)
	}
}

func TestSynthesizeTopicMissingCohort(t *testing.T) {
	gw := &fakeGateway{narrative: &gateway.TopicNarrative{}}
	engine := NewEngine(gw, zap.NewNop())

	got := engine.SynthesizeTopic(context.Background(), "agents", []model.ExtractedClaim{
		claim("agents", model.CategoryLab, 0.9),
	})

	if got.CriticSentiment != NeutralSentiment {
		t.Errorf("missing cohort sentiment = %v, want neutral", got.CriticSentiment)
	}
	if got.DeltaConfident {
		t.Errorf("delta must be unconfident when a cohort is empty")
	}
	if math.Abs(got.HypeDelta-0.4) > 1e-9 {
		t.Errorf("hype delta = %v, want 0.4", got.HypeDelta)
	}
}

func TestSynthesizeTopicGatewayFailure(t *testing.T) {
	gw := &fakeGateway{narrativeErr: errors.New("service down")}
	engine := NewEngine(gw, zap.NewNop())

	got := engine.SynthesizeTopic(context.Background(), "agents", []model.ExtractedClaim{
		claim("agents", model.CategoryLab, 0.9),
		claim("agents", model.CategoryCritic, 0.5),
	})

	// Aggregates survive; only the narrative is missing.
	if got.ClaimCount != 2 || !got.DeltaConfident {
		t.Errorf("aggregates lost on gateway failure: %+v", got)
	}
	if got.Narrative != "" || got.LabConsensus != "" {
		t.Errorf("expected empty narrative fields, got %+v", got)
	}
}

func TestAssessHypeDegrades(t *testing.T) {
	engine := NewEngine(&fakeGateway{assessErr: errors.New("timeout")}, zap.NewNop())

	got := engine.AssessHype(context.Background(), []model.TopicSynthesis{{Topic: "agents"}})
	if got.FieldSentiment != NeutralSentiment {
		t.Errorf("field sentiment = %v, want neutral", got.FieldSentiment)
	}
	if got.Overhyped == nil || len(got.Overhyped) != 0 {
		t.Errorf("overhyped should be empty, got %v", got.Overhyped)
	}
	if got.Underhyped == nil || len(got.Underhyped) != 0 {
		t.Errorf("underhyped should be empty, got %v", got.Underhyped)
	}
}

func TestAssessHypeNormalizes(t *testing.T) {
	engine := NewEngine(&fakeGateway{assessment: &model.HypeAssessment{
		Overhyped:      []model.TopicVerdict{{Topic: "agents", Score: 0.8}},
		FieldSentiment: 1.7,
	}}, zap.NewNop())

	got := engine.AssessHype(context.Background(), []model.TopicSynthesis{{Topic: "agents"}})
	if got.Underhyped == nil {
		t.Errorf("nil underhyped list should be normalized to empty")
	}
	if got.FieldSentiment != NeutralSentiment {
		t.Errorf("out-of-range sentiment = %v, want neutral", got.FieldSentiment)
	}
	if len(got.Overhyped) != 1 || got.Overhyped[0].Topic != "agents" {
		t.Errorf("overhyped verdicts lost: %+v", got.Overhyped)
	}
}
