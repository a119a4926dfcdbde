package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"hypewatch/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenPath(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedOneSource(t *testing.T, s *Store) model.Source {
	t.Helper()
	ctx := context.Background()
	err := s.SeedSources(ctx, []model.Source{{
		Kind:       model.KindFeed,
		Identifier: "https://example.org/feed.xml",
		Name:       "Example Feed",
		Category:   model.CategoryResearcher,
	}})
	if err != nil {
		t.Fatalf("seed sources: %v", err)
	}
	sources, err := s.ListSources(ctx, false)
	if err != nil {
		t.Fatalf("list sources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(sources))
	}
	return sources[0]
}

func TestUpsertContent_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	src := seedOneSource(t, s)

	item := model.RawItem{
		SourceID:    src.ID,
		ExternalID:  "post-123",
		Title:       "First title",
		Body:        "original body",
		PublishedAt: time.Now().UTC(),
	}

	id1, err := s.UpsertContent(ctx, item)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	item.Title = "Updated title"
	item.Body = "updated body"
	id2, err := s.UpsertContent(ctx, item)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if id1 != id2 {
		t.Errorf("expected same row id for same (source, external) pair, got %d and %d", id1, id2)
	}

	count, err := s.CountContent(ctx)
	if err != nil {
		t.Fatalf("count content: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 content row after re-ingest, got %d", count)
	}

	items, err := s.GetRecentContent(ctx, 1, 10)
	if err != nil {
		t.Fatalf("recent content: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Updated title" {
		t.Errorf("expected latest ingestion to win, got %+v", items)
	}
}

func TestInsertClaim_Defaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.InsertClaim(ctx, model.ExtractedClaim{
		Text: "model X will ship soon",
		Kind: model.ClaimHint,
	})
	if err != nil {
		t.Fatalf("insert claim: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected generated id")
	}

	claims, err := s.ClaimsByTopic(ctx, "general", 10)
	if err != nil {
		t.Fatalf("claims by topic: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim in default topic bucket, got %d", len(claims))
	}
	claim := claims[0]
	if claim.ContentID != model.UnattachedContentID {
		t.Errorf("expected sentinel content id, got %d", claim.ContentID)
	}
	if claim.Stance != model.StanceNeutral {
		t.Errorf("expected neutral default stance, got %q", claim.Stance)
	}
}

func TestInsertClaim_AlwaysAppends(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	claim := model.ExtractedClaim{Text: "same text", Kind: model.ClaimFact, Topic: "agents"}
	id1, err := s.InsertClaim(ctx, claim)
	if err != nil {
		t.Fatalf("insert claim: %v", err)
	}
	id2, err := s.InsertClaim(ctx, claim)
	if err != nil {
		t.Fatalf("insert claim again: %v", err)
	}
	if id1 == id2 {
		t.Errorf("claims are append-only; expected distinct ids, got %d twice", id1)
	}
}

func TestQueryClaims_Filters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fixtures := []model.ExtractedClaim{
		{Text: "agents are improving fast", Kind: model.ClaimFact, Topic: "agents", AuthorCategory: model.CategoryLab, Author: "lab-a"},
		{Text: "agents are overhyped", Kind: model.ClaimCritique, Topic: "agents", AuthorCategory: model.CategoryCritic, Author: "critic-b"},
		{Text: "new benchmark released", Kind: model.ClaimFact, Topic: "benchmarks", AuthorCategory: model.CategoryResearcher, Author: "res-c"},
	}
	for _, c := range fixtures {
		if _, err := s.InsertClaim(ctx, c); err != nil {
			t.Fatalf("insert fixture: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter ClaimFilter
		want   int
	}{
		{"by topic", ClaimFilter{Topic: "agents"}, 2},
		{"by category", ClaimFilter{AuthorCategory: model.CategoryCritic}, 1},
		{"by kind", ClaimFilter{Kind: model.ClaimFact}, 2},
		{"by search", ClaimFilter{Search: "overhyped"}, 1},
		{"topic and category", ClaimFilter{Topic: "agents", AuthorCategory: model.CategoryLab}, 1},
		{"no match", ClaimFilter{Topic: "robotics"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := s.QueryClaims(ctx, tt.filter)
			if err != nil {
				t.Fatalf("query claims: %v", err)
			}
			if len(claims) != tt.want {
				t.Errorf("expected %d claims, got %d", tt.want, len(claims))
			}
		})
	}
}

func TestPredictionLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.RecordPrediction(ctx, model.Prediction{
		Text:       "AGI by 2027",
		Author:     "lab-leader",
		Confidence: 0.9,
		Timeframe:  model.TimeframeTwoYears,
		Topic:      "agi-timeline",
	})
	if err != nil {
		t.Fatalf("record prediction: %v", err)
	}

	p, err := s.GetPrediction(ctx, id)
	if err != nil {
		t.Fatalf("get prediction: %v", err)
	}
	if p.Status != model.StatusTooEarly {
		t.Errorf("expected too-early initial status, got %q", p.Status)
	}

	score := 0.9
	if err := s.UpdatePredictionStatus(ctx, id, model.StatusVerified, &score, "it happened", false); err != nil {
		t.Fatalf("update to verified: %v", err)
	}

	p, err = s.GetPrediction(ctx, id)
	if err != nil {
		t.Fatalf("get prediction: %v", err)
	}
	if p.Status != model.StatusVerified {
		t.Errorf("expected verified, got %q", p.Status)
	}
	if p.AccuracyScore == nil || *p.AccuracyScore != 0.9 {
		t.Errorf("expected accuracy 0.9, got %v", p.AccuracyScore)
	}
	if p.VerifiedAt == nil {
		t.Errorf("expected verified-at to be stamped")
	}

	// Terminal status cannot be left implicitly.
	zero := 0.0
	err = s.UpdatePredictionStatus(ctx, id, model.StatusFalsified, &zero, "", false)
	if !errors.Is(err, ErrTerminalStatus) {
		t.Errorf("expected ErrTerminalStatus, got %v", err)
	}

	// Explicit override is the only escape hatch.
	if err := s.UpdatePredictionStatus(ctx, id, model.StatusFalsified, &zero, "operator correction", true); err != nil {
		t.Fatalf("forced update: %v", err)
	}
	p, err = s.GetPrediction(ctx, id)
	if err != nil {
		t.Fatalf("get prediction: %v", err)
	}
	if p.Status != model.StatusFalsified {
		t.Errorf("expected falsified after override, got %q", p.Status)
	}
}

func TestUpdatePredictionStatus_InvalidStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.RecordPrediction(ctx, model.Prediction{Text: "x", Author: "a"})
	if err != nil {
		t.Fatalf("record prediction: %v", err)
	}
	err = s.UpdatePredictionStatus(ctx, id, "mostly-true", nil, "", false)
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestPredictionAccuracyStats_ZeroSample(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stats, err := s.PredictionAccuracyStats(ctx, "")
	if err != nil {
		t.Fatalf("stats on empty table: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("expected 0 total, got %d", stats.Total)
	}
	if stats.AverageAccuracy != 0 {
		t.Errorf("expected 0 average for zero sample, got %v", stats.AverageAccuracy)
	}
}

func TestPredictionAccuracyStats_ByAuthor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids := make([]int64, 3)
	for i, author := range []string{"alice", "alice", "bob"} {
		id, err := s.RecordPrediction(ctx, model.Prediction{Text: "p", Author: author})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		ids[i] = id
	}

	high, low := 1.0, 0.5
	if err := s.UpdatePredictionStatus(ctx, ids[0], model.StatusVerified, &high, "", false); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdatePredictionStatus(ctx, ids[1], model.StatusPartiallyVerified, &low, "", false); err != nil {
		t.Fatalf("update: %v", err)
	}

	stats, err := s.PredictionAccuracyStats(ctx, "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("expected 2 predictions for alice, got %d", stats.Total)
	}
	if stats.Scored != 2 {
		t.Errorf("expected 2 scored, got %d", stats.Scored)
	}
	if stats.AverageAccuracy != 0.75 {
		t.Errorf("expected average 0.75, got %v", stats.AverageAccuracy)
	}
	if stats.ByStatus[model.StatusVerified] != 1 {
		t.Errorf("expected 1 verified, got %d", stats.ByStatus[model.StatusVerified])
	}

	bob, err := s.PredictionAccuracyStats(ctx, "bob")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if bob.ByStatus[model.StatusTooEarly] != 1 {
		t.Errorf("expected bob's prediction still too-early, got %+v", bob.ByStatus)
	}
	if bob.AverageAccuracy != 0 {
		t.Errorf("expected 0 average for unscored author, got %v", bob.AverageAccuracy)
	}
}

func TestSynthesisRunRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := model.SynthesisRun{
		RunID:      "run-0001",
		PeriodDays: 7,
		ClaimCount: 12,
		Topics: []model.TopicSynthesis{{
			Topic:           "agents",
			ClaimCount:      12,
			LabSentiment:    0.8,
			CriticSentiment: 0.3,
			HypeDelta:       0.5,
			DeltaConfident:  true,
			Narrative:       "labs are enthusiastic, critics are not",
		}},
		Assessment: model.HypeAssessment{
			Overhyped:      []model.TopicVerdict{{Topic: "agents", Score: 0.5, Rationale: "delta"}},
			FieldSentiment: 0.6,
			Summary:        "one hot topic",
		},
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.SaveSynthesisRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	got, err := s.LatestSynthesisRun(ctx)
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if got.RunID != "run-0001" {
		t.Errorf("expected run-0001, got %q", got.RunID)
	}
	if len(got.Topics) != 1 || got.Topics[0].HypeDelta != 0.5 {
		t.Errorf("topics did not round-trip: %+v", got.Topics)
	}
	if len(got.Assessment.Overhyped) != 1 {
		t.Errorf("assessment did not round-trip: %+v", got.Assessment)
	}

	// A second run adds a row; history preserves both.
	run.RunID = "run-0002"
	run.GeneratedAt = run.GeneratedAt.Add(time.Minute)
	if err := s.SaveSynthesisRun(ctx, run); err != nil {
		t.Fatalf("save second run: %v", err)
	}
	history, err := s.SynthesisHistory(ctx, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 runs in history, got %d", len(history))
	}
	if history[0].RunID != "run-0002" {
		t.Errorf("expected newest first, got %q", history[0].RunID)
	}
}

func TestSeedSources_UpsertAndToggle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	src := seedOneSource(t, s)

	// Re-seeding the same (kind, identifier) must not duplicate.
	err := s.SeedSources(ctx, []model.Source{{
		Kind:       model.KindFeed,
		Identifier: "https://example.org/feed.xml",
		Name:       "Renamed Feed",
	}})
	if err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	sources, err := s.ListSources(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 source after re-seed, got %d", len(sources))
	}
	if sources[0].Name != "Renamed Feed" {
		t.Errorf("expected refreshed name, got %q", sources[0].Name)
	}

	if err := s.SetSourceActive(ctx, src.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, err := s.ListSources(ctx, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active sources, got %d", len(active))
	}

	if err := s.SetSourceActive(ctx, 9999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown source, got %v", err)
	}
}

func TestTouchSource(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	src := seedOneSource(t, s)

	if src.LastFetch != nil {
		t.Fatalf("expected nil last-fetched on fresh source")
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.TouchSource(ctx, src.ID, now); err != nil {
		t.Fatalf("touch: %v", err)
	}

	sources, err := s.ListSources(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if sources[0].LastFetch == nil || !sources[0].LastFetch.Equal(now) {
		t.Errorf("expected last-fetched %v, got %v", now, sources[0].LastFetch)
	}
}
