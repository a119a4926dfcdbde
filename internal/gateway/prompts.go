package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"hypewatch/internal/model"
)

const systemPrompt = `You analyze public discourse about AI research and products.
You always answer with a single JSON object and nothing else.
Scores are floats in [0,1]. Unknown values are omitted, never invented.`

func buildFilterPrompt(items []ItemSummary) string {
	payload, _ := json.Marshal(items)

	var b strings.Builder
	b.WriteString("Rate each item's relevance to substantive AI discourse (research, capabilities, products, safety, critique).\n")
	b.WriteString("Marketing fluff, memes and conversational chatter score low.\n\n")
	b.WriteString("Items:\n")
	b.Write(payload)
	b.WriteString("\n\nAnswer with:\n")
	b.WriteString(`{"assessments": [{"index": 0, "relevance": 0.0, "topic": "...", "content_type": "...", "author_category": "lab|critic|researcher|journalist|builder", "brief": "one sentence"}]}`)
	return b.String()
}

func buildExtractPrompt(items []ItemSummary) string {
	payload, _ := json.Marshal(items)

	var b strings.Builder
	b.WriteString("Extract every distinct claim from these items. A claim is one assertion: ")
	b.WriteString("a fact, prediction, hint at unannounced work, opinion, critique, or question.\n\n")
	b.WriteString("Items:\n")
	b.Write(payload)
	b.WriteString("\n\nAnswer with:\n")
	b.WriteString(`{"claims": [{"index": 0, "text": "...", "kind": "fact|prediction|hint|opinion|critique|question", "topic": "...", "stance": "bullish|bearish|neutral", "bullishness": 0.5, "confidence": 0.5, "timeframe": "months|1-year|2-years|5-years|decade", "evidence_quality": "anecdotal|benchmark|demo|paper|none", "quoteworthiness": 0.0, "entities": [], "quote": "...", "falsifiable": false}]}`)
	b.WriteString("\nMark falsifiable=true only for forward-looking statements with a checkable outcome.")
	return b.String()
}

func buildTopicPrompt(req TopicRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Synthesize the discourse on topic %q from these claims.\n", req.Topic)
	fmt.Fprintf(&b, "Measured sentiment: labs %.2f, critics %.2f, delta %+.2f (positive = labs more bullish).\n\n",
		req.LabSentiment, req.CriticSentiment, req.HypeDelta)

	b.WriteString("Claims:\n")
	for _, claim := range req.Claims {
		fmt.Fprintf(&b, "- [%s/%s] %s (%s)\n", claim.Kind, claim.AuthorCategory, Summarize(claim.Text, 200), claim.Author)
	}

	b.WriteString("\nAnswer with:\n")
	b.WriteString(`{"lab_consensus": "...", "critic_consensus": "...", "agreements": [], "disagreements": [], "notable_predictions": [], "narrative": "one paragraph"}`)
	return b.String()
}

func buildAssessmentPrompt(topics []model.TopicSynthesis) string {
	var b strings.Builder
	b.WriteString("Given these per-topic syntheses, decide which topics are over- and under-hyped this period.\n")
	b.WriteString("A large positive hype delta suggests lab enthusiasm outpaces critic sentiment.\n\n")

	for _, topic := range topics {
		fmt.Fprintf(&b, "- %s: %d claims, delta %+.2f, evidence avg %.2f. %s\n",
			topic.Topic, topic.ClaimCount, topic.HypeDelta, topic.EvidenceQualityAvg,
			Summarize(topic.Narrative, 300))
	}

	b.WriteString("\nAnswer with:\n")
	b.WriteString(`{"overhyped": [{"topic": "...", "score": 0.0, "rationale": "..."}], "underhyped": [{"topic": "...", "score": 0.0, "rationale": "..."}], "field_sentiment": 0.5, "summary": "..."}`)
	return b.String()
}

func buildDigestPrompt(run model.SynthesisRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a weekly digest in markdown covering the last %d days of AI discourse (%d claims).\n",
		run.PeriodDays, run.ClaimCount)
	b.WriteString("Sections: field overview, per-topic highlights, hype check, predictions to watch.\n\n")

	for _, topic := range run.Topics {
		fmt.Fprintf(&b, "## %s (%d claims, delta %+.2f)\n%s\n\n",
			topic.Topic, topic.ClaimCount, topic.HypeDelta, Summarize(topic.Narrative, 400))
	}
	fmt.Fprintf(&b, "Overall: %s\n", run.Assessment.Summary)

	b.WriteString("\nAnswer with:\n")
	b.WriteString(`{"digest": "markdown text"}`)
	return b.String()
}
