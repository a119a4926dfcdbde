package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"hypewatch/internal/model"
)

// OpenAIGateway implements Gateway against OpenAI's Chat Completions API, or
// any compatible endpoint via BaseURL.
type OpenAIGateway struct {
	client *openai.Client
	cfg    model.GatewayConfig
	logger *zap.Logger
}

// NewOpenAIGateway creates a gateway from configuration.
func NewOpenAIGateway(cfg model.GatewayConfig, logger *zap.Logger) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gateway API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	if cfg.FilterBatchSize <= 0 || cfg.FilterBatchSize > 20 {
		cfg.FilterBatchSize = 20
	}
	if cfg.ExtractBatchSize <= 0 || cfg.ExtractBatchSize > 10 {
		cfg.ExtractBatchSize = 10
	}

	return &OpenAIGateway{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// FilterRelevance scores items in batches of at most FilterBatchSize.
// A failed or unparseable batch contributes no assessments; the rest of the
// batches still run.
func (g *OpenAIGateway) FilterRelevance(ctx context.Context, items []ItemSummary) ([]Assessment, error) {
	var assessments []Assessment

	for start := 0; start < len(items); start += g.cfg.FilterBatchSize {
		batch := reindex(items[start:min(start+g.cfg.FilterBatchSize, len(items))])

		reply, err := g.complete(ctx, buildFilterPrompt(batch))
		if err != nil {
			g.logger.Warn("relevance batch failed, dropping batch",
				zap.Int("offset", start), zap.Error(err))
			continue
		}

		var parsed struct {
			Assessments []Assessment `json:"assessments"`
		}
		payload, ok := ExtractJSON(reply)
		if !ok {
			g.logger.Warn("relevance reply had no JSON payload", zap.Int("offset", start))
			continue
		}
		if err := json.Unmarshal(payload, &parsed); err != nil {
			g.logger.Warn("relevance payload malformed", zap.Int("offset", start), zap.Error(err))
			continue
		}

		for _, a := range parsed.Assessments {
			if a.Index < 0 || a.Index >= len(batch) {
				continue
			}
			a.Index += start // Back to caller's numbering
			assessments = append(assessments, a)
		}
	}

	return assessments, nil
}

// ExtractClaims extracts claims in batches of at most ExtractBatchSize and
// normalizes the heterogeneous response shape into the canonical schema.
func (g *OpenAIGateway) ExtractClaims(ctx context.Context, items []ItemSummary) ([]CandidateClaim, error) {
	var candidates []CandidateClaim

	for start := 0; start < len(items); start += g.cfg.ExtractBatchSize {
		batch := reindex(items[start:min(start+g.cfg.ExtractBatchSize, len(items))])

		reply, err := g.complete(ctx, buildExtractPrompt(batch))
		if err != nil {
			g.logger.Warn("extraction batch failed, dropping batch",
				zap.Int("offset", start), zap.Error(err))
			continue
		}

		var parsed struct {
			Claims []wireClaim `json:"claims"`
		}
		payload, ok := ExtractJSON(reply)
		if !ok {
			g.logger.Warn("extraction reply had no JSON payload", zap.Int("offset", start))
			continue
		}
		if err := json.Unmarshal(payload, &parsed); err != nil {
			g.logger.Warn("extraction payload malformed", zap.Int("offset", start), zap.Error(err))
			continue
		}

		for _, w := range parsed.Claims {
			candidate := normalizeClaim(w)
			if candidate.Claim.Text == "" {
				continue
			}
			if candidate.Index < 0 || candidate.Index >= len(batch) {
				continue
			}
			candidate.Index += start
			candidates = append(candidates, candidate)
		}
	}

	return candidates, nil
}

// SynthesizeTopic produces one topic's narrative. Degrades to an empty
// narrative on failure.
func (g *OpenAIGateway) SynthesizeTopic(ctx context.Context, req TopicRequest) (*TopicNarrative, error) {
	reply, err := g.complete(ctx, buildTopicPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("synthesize topic %q: %w", req.Topic, err)
	}

	payload, ok := ExtractJSON(reply)
	if !ok {
		g.logger.Warn("topic synthesis reply had no JSON payload", zap.String("topic", req.Topic))
		return &TopicNarrative{}, nil
	}

	var narrative TopicNarrative
	if err := json.Unmarshal(payload, &narrative); err != nil {
		g.logger.Warn("topic synthesis payload malformed", zap.String("topic", req.Topic), zap.Error(err))
		return &TopicNarrative{}, nil
	}
	return &narrative, nil
}

// AssessHype produces the cycle-wide verdict under the canonical schema.
func (g *OpenAIGateway) AssessHype(ctx context.Context, topics []model.TopicSynthesis) (*model.HypeAssessment, error) {
	reply, err := g.complete(ctx, buildAssessmentPrompt(topics))
	if err != nil {
		return nil, fmt.Errorf("assess hype: %w", err)
	}

	payload, ok := ExtractJSON(reply)
	if !ok {
		return nil, fmt.Errorf("assess hype: no JSON payload in reply")
	}

	var assessment model.HypeAssessment
	if err := json.Unmarshal(payload, &assessment); err != nil {
		return nil, fmt.Errorf("assess hype: %w", err)
	}
	return &assessment, nil
}

// GenerateDigest writes the weekly digest markdown.
func (g *OpenAIGateway) GenerateDigest(ctx context.Context, run model.SynthesisRun) (string, error) {
	reply, err := g.complete(ctx, buildDigestPrompt(run))
	if err != nil {
		return "", fmt.Errorf("generate digest: %w", err)
	}

	payload, ok := ExtractJSON(reply)
	if !ok {
		// Some models answer with bare markdown despite the instruction.
		return reply, nil
	}
	var parsed struct {
		Digest string `json:"digest"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil || parsed.Digest == "" {
		return reply, nil
	}
	return parsed.Digest, nil
}

func (g *OpenAIGateway) complete(ctx context.Context, prompt string) (string, error) {
	timeout := time.Duration(g.cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mdl := g.cfg.Model
	if mdl == "" {
		mdl = openai.GPT4oMini
	}
	maxTokens := g.cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: mdl,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func reindex(items []ItemSummary) []ItemSummary {
	batch := make([]ItemSummary, len(items))
	for i, item := range items {
		item.Index = i
		batch[i] = item
	}
	return batch
}
