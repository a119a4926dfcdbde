package gateway

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "direct object",
			in:   `{"assessments": []}`,
			want: `{"assessments": []}`,
			ok:   true,
		},
		{
			name: "fenced block with language tag",
			in:   "Here you go:\n```json\n{\"claims\": [{\"text\": \"x\"}]}\n```\nHope that helps!",
			want: `{"claims": [{"text": "x"}]}`,
			ok:   true,
		},
		{
			name: "fenced block without language tag",
			in:   "```\n{\"claims\": []}\n```",
			want: `{"claims": []}`,
			ok:   true,
		},
		{
			name: "prose wrapped braces",
			in:   `Sure! The result is {"relevance": 0.7, "topic": "agents"} as requested.`,
			want: `{"relevance": 0.7, "topic": "agents"}`,
			ok:   true,
		},
		{
			name: "nested braces inside strings",
			in:   `Result: {"brief": "uses {curly} notation", "relevance": 1}`,
			want: `{"brief": "uses {curly} notation", "relevance": 1}`,
			ok:   true,
		},
		{
			name: "top level array",
			in:   `The list: [{"index": 0}, {"index": 1}] done.`,
			want: `[{"index": 0}, {"index": 1}]`,
			ok:   true,
		},
		{
			name: "no json at all",
			in:   "I could not produce a structured answer, sorry.",
			ok:   false,
		},
		{
			name: "unbalanced braces",
			in:   `{"assessments": [`,
			ok:   false,
		},
		{
			name: "empty input",
			in:   "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.in)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v (payload %q)", tt.ok, ok, got)
			}
			if !tt.ok {
				return
			}
			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if !json.Valid(got) {
				t.Errorf("extracted payload is not valid JSON: %q", got)
			}
		})
	}
}

func TestNormalizeClaim_Defaults(t *testing.T) {
	got := normalizeClaim(wireClaim{Text: "something happened"})
	if got.Claim.Stance != "neutral" {
		t.Errorf("expected neutral default stance, got %q", got.Claim.Stance)
	}
	if got.Claim.Confidence != 0.5 {
		t.Errorf("expected 0.5 default confidence, got %v", got.Claim.Confidence)
	}
	if got.Claim.Bullishness != 0.5 {
		t.Errorf("expected 0.5 default bullishness, got %v", got.Claim.Bullishness)
	}
	if got.Claim.Topic != "general" {
		t.Errorf("expected general default topic, got %q", got.Claim.Topic)
	}
	if got.Claim.Kind != "opinion" {
		t.Errorf("expected opinion for unknown kind, got %q", got.Claim.Kind)
	}
}

func TestNormalizeClaim_Aliases(t *testing.T) {
	conf := 0.8
	got := normalizeClaim(wireClaim{
		Item:       3,
		Claim:      "GPT-7 ships next year",
		Type:       "prediction",
		Stance:     "BULLISH",
		Confidence: &conf,
	})
	if got.Index != 3 {
		t.Errorf("expected index from item alias, got %d", got.Index)
	}
	if got.Claim.Text != "GPT-7 ships next year" {
		t.Errorf("expected text from claim alias, got %q", got.Claim.Text)
	}
	if got.Claim.Kind != "prediction" {
		t.Errorf("expected kind from type alias, got %q", got.Claim.Kind)
	}
	if got.Claim.Stance != "bullish" {
		t.Errorf("expected case-folded stance, got %q", got.Claim.Stance)
	}
	if !got.Falsifiable {
		t.Errorf("prediction kind should imply falsifiable")
	}
}

func TestNormalizeClaim_ClampsScores(t *testing.T) {
	over, under := 1.7, -0.2
	got := normalizeClaim(wireClaim{Text: "x", Bullishness: &over, Confidence: &under})
	if got.Claim.Bullishness != 1 {
		t.Errorf("expected bullishness clamped to 1, got %v", got.Claim.Bullishness)
	}
	if got.Claim.Confidence != 0 {
		t.Errorf("expected confidence clamped to 0, got %v", got.Claim.Confidence)
	}
}
